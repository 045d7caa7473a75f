// Package main provides the GradViz CLI.
package main

import (
	"fmt"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("GradViz %s\n", version)
			return
		case "visualization":
			if err := runVisualization(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("GradViz - Gradient-Based Visual Explanations for CNN Classifiers")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  visualization    Generate attribution maps for a directory of images")
	fmt.Println("  version          Show version")
}
