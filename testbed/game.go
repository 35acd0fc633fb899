package testbed

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/anima-buffers/engine"
	"github.com/spaghettifunk/anima-buffers/engine/assets"
	"github.com/spaghettifunk/anima-buffers/engine/config"
	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/engine/renderer"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/headless"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/opengl"
)

//go:embed shaders/sprite.vert
var defaultVertexSource string

//go:embed shaders/sprite.frag
var defaultFragmentSource string

const (
	cameraBindPoint uint32 = 0
	tintBindPoint   uint32 = 1
)

type cameraBlock struct {
	Projection mgl32.Mat4 `std140:"projection"`
	View       mgl32.Mat4 `std140:"view"`
}

type tintBlock struct {
	Tint mgl32.Vec4 `std140:"tint"`
	Time float32    `std140:"time"`
}

var (
	cameraLayout = renderer.MustStd140Of[cameraBlock]("Camera")
	tintLayout   = renderer.MustStd140Of[tintBlock]("Tint")
)

// headlessLocations are the attribute locations a linker would assign to
// the sprite program.
var headlessLocations = map[string]int32{
	"position": 0,
	"color":    1,
	"texcoord": 2,
}

type TestGame struct {
	*engine.Game
}

type gameState struct {
	app *engine.Application

	geometry *renderer.GeometryBuffer
	camera   *renderer.UniformBlockBuffer
	tints    *renderer.UniformBlockBuffer

	shader  renderer.Shader
	program *opengl.Program
	reloads int

	vertices []spriteVertex
	encoded  []byte
	elapsed  float64
}

// clearer and viewporter are implemented by devices that own a framebuffer.
type clearer interface {
	Clear(r, g, b, a float32)
}

type viewporter interface {
	Viewport(width, height uint32)
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Name:  "Anima Buffers Testbed",
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnOnAsset = tg.OnAsset
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(app *engine.Application) error {
	core.LogInfo("initializing testbed...")
	st := g.state()
	st.app = app
	cfg := app.Config
	device := app.Device

	vertexCount := uint32(quadRows * quadsPerRow * verticesPerQuad)
	indexCount := uint32(quadRows * quadsPerRow * indicesPerQuad)
	if vertexCount > cfg.Renderer.Geometry.MaxVertices || indexCount > cfg.Renderer.Geometry.MaxIndices {
		return fmt.Errorf("the quad batch needs %d vertices and %d indices: %w", vertexCount, indexCount, core.ErrCapacityExceeded)
	}

	layout, err := renderer.VertexLayoutOf[spriteVertex]()
	if err != nil {
		return err
	}
	st.geometry, err = renderer.CreateGeometryBuffer(device, layout.Stride,
		cfg.Renderer.Geometry.MaxVertices, cfg.Renderer.Geometry.MaxIndices)
	if err != nil {
		return err
	}
	st.geometry.DeclareAttributes(layout)

	shader, err := g.buildShader()
	if err != nil {
		return err
	}
	st.shader = shader
	st.geometry.Attach(shader)
	st.geometry.LoadIndexData(quadIndices(quadRows*quadsPerRow), metadata.BufferUsageStaticDraw)
	st.geometry.Unbind()

	usage := cfg.UniformUsage()
	st.camera, err = renderer.CreateUniformBlockBuffer(device, cameraLayout.Size, 1,
		renderer.WithUniformName("camera"),
		renderer.WithUniformUsage(usage),
		renderer.WithAutoFlush(cfg.Renderer.Uniform.AutoFlush))
	if err != nil {
		return err
	}
	st.camera.SetOffsets(cameraLayout)
	st.camera.SetBindPoint(cameraBindPoint)
	st.camera.Bind(false)

	st.tints, err = renderer.CreateUniformBlockBuffer(device, tintLayout.Size, quadRows,
		renderer.WithUniformName("tints"),
		renderer.WithUniformUsage(usage),
		renderer.WithAutoFlush(cfg.Renderer.Uniform.AutoFlush))
	if err != nil {
		return err
	}
	st.tints.SetOffsets(tintLayout)
	st.tints.SetBindPoint(tintBindPoint)
	st.tints.Bind(false)

	// Row tints never change; they are staged in the mirror and pushed once.
	for row := 0; row < quadRows; row++ {
		hue := float32(row) / quadRows
		st.tints.SetUniformVec4ByName(row, "tint", mgl32.Vec4{1, 1 - hue*0.5, 0.5 + hue*0.5, 1})
	}
	st.tints.Flush()

	st.camera.SetUniformMat4ByName(0, "view", mgl32.Ident4())
	st.camera.Flush()
	return nil
}

// buildShader creates the sprite shader for the running backend. Sources are
// read from the shader directory, falling back to the built-in ones.
func (g *TestGame) buildShader() (renderer.Shader, error) {
	st := g.state()
	if st.app.Backend == config.BackendHeadless {
		st.reloads++
		return headless.NewShader(fmt.Sprintf("sprite#%d", st.reloads), headlessLocations), nil
	}

	vs := readSource(st.app.ShaderPath("sprite.vert"), defaultVertexSource)
	fs := readSource(st.app.ShaderPath("sprite.frag"), defaultFragmentSource)
	program, err := opengl.NewProgram("sprite", vs, fs)
	if err != nil {
		return nil, err
	}
	if err := program.BindUniformBlock(cameraLayout.Name, cameraBindPoint); err != nil {
		program.Destroy()
		return nil, err
	}
	if err := program.BindUniformBlock(tintLayout.Name, tintBindPoint); err != nil {
		program.Destroy()
		return nil, err
	}
	if st.program != nil {
		st.program.Destroy()
	}
	st.program = program
	st.reloads++
	return program, nil
}

func readSource(path, fallback string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogDebug("using built-in %s: %s", filepath.Base(path), err)
		return fallback
	}
	return string(data)
}

func (g *TestGame) Update(deltaTime float64) error {
	st := g.state()
	st.elapsed += deltaTime
	st.vertices = buildQuads(st.vertices, st.elapsed)

	encoded, err := encodeVertices(st.encoded, st.vertices)
	if err != nil {
		return err
	}
	st.encoded = encoded
	return nil
}

func (g *TestGame) Render(deltaTime float64) error {
	st := g.state()
	if c, ok := st.app.Device.(clearer); ok {
		c.Clear(0.08, 0.08, 0.1, 1)
	}

	// One buffer is active on the uniform target at a time.
	st.tints.Activate()
	st.tints.SetUniform1f(renderer.AllBlocks, uint32(st.tints.Offset("time")), float32(st.elapsed))
	if !st.tints.AutoFlush() {
		st.tints.Flush()
	}
	st.tints.Deactivate()

	st.geometry.Bind()
	st.geometry.LoadVertexData(st.encoded, uint32(len(st.vertices)), st.app.Config.GeometryUsage())
	perRow := uint32(quadsPerRow * indicesPerQuad)
	for row := uint32(0); row < quadRows; row++ {
		st.tints.SetBlock(row)
		st.geometry.Draw(metadata.DrawModeTriangles, perRow, row*perRow)
	}
	st.geometry.Unbind()
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	st := g.state()
	if v, ok := st.app.Device.(viewporter); ok {
		v.Viewport(width, height)
	}
	projection := mgl32.Ortho2D(0, float32(width), float32(height), 0)
	st.camera.Activate()
	st.camera.SetUniformMat4ByName(0, "projection", projection)
	if !st.camera.AutoFlush() {
		st.camera.Flush()
	}
	st.camera.Deactivate()
	return nil
}

// OnAsset rebuilds the sprite shader when its sources change. A shader that
// fails to build leaves the current one attached.
func (g *TestGame) OnAsset(asset assets.AssetInfo) error {
	if asset.Type != assets.AssetTypeShader {
		return nil
	}
	st := g.state()
	shader, err := g.buildShader()
	if err != nil {
		return err
	}
	st.shader = shader
	st.geometry.Attach(shader)
	st.geometry.Unbind()
	core.LogInfo("sprite shader reloaded from %s", asset.Path)
	return nil
}

func (g *TestGame) Shutdown() error {
	st := g.state()
	if st.geometry != nil {
		st.geometry.Destroy()
	}
	if st.camera != nil {
		st.camera.Destroy()
	}
	if st.tints != nil {
		st.tints.Destroy()
	}
	if st.program != nil {
		st.program.Destroy()
		st.program = nil
	}
	return nil
}
