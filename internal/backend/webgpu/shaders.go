package webgpu

// Threads per workgroup for element-wise shaders.
const workgroupSize = 256

// binaryShader builds a same-shape element-wise WGSL shader for the
// given infix operator.
func binaryShader(op string) string {
	return `
struct Params {
    num_elements: u32,
}

@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read> y: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= params.num_elements) {
        return;
    }
    result[i] = x[i] ` + op + ` y[i];
}
`
}

var (
	addShader = binaryShader("+")
	subShader = binaryShader("-")
	mulShader = binaryShader("*")
	divShader = binaryShader("/")
)
