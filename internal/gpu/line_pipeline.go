//go:build !nogpu

package gpu

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/aaline"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const (
	lineColorFormat = gputypes.TextureFormatRGBA8Unorm
	lineDepthFormat = gputypes.TextureFormatDepth24Plus

	// copyRowAlignment is the required BytesPerRow alignment of
	// texture-to-buffer copies.
	copyRowAlignment = 256
)

// LinePipeline renders anti-aliased line lists through a wgpu/hal render
// pipeline and reads the resolved image back into CPU memory.
//
// The parameter block is bound as a uniform buffer at group 0, binding 0.
// Attachments are recreated only when the target size or sample count
// changes.
type LinePipeline struct {
	device hal.Device
	queue  hal.Queue

	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline
	samples       uint32 // sample count the pipeline was built for

	msaaTex     hal.Texture // nil when samples == 1
	msaaView    hal.TextureView
	depthTex    hal.Texture
	depthView   hal.TextureView
	resolveTex  hal.Texture
	resolveView hal.TextureView
	width       uint32
	height      uint32
}

// NewLinePipeline creates a line pipeline on the given device. GPU objects
// are created lazily on the first Render.
func NewLinePipeline(device hal.Device, queue hal.Queue) *LinePipeline {
	return &LinePipeline{device: device, queue: queue}
}

// Size returns the current attachment dimensions.
func (p *LinePipeline) Size() (uint32, uint32) {
	return p.width, p.height
}

// Render clears the target, draws every batch of frame as one line-list
// draw and writes the resolved pixels into target. Window row 0 ends up in
// target row 0.
func (p *LinePipeline) Render(target aaline.GPURenderTarget, frame *aaline.LineFrame) error {
	if frame.Source == nil || frame.Source.Transport() != aaline.TransportUniform {
		return aaline.ErrFallbackToCPU
	}
	if target.Width <= 0 || target.Height <= 0 {
		return fmt.Errorf("gpu-line: invalid target size %dx%d", target.Width, target.Height)
	}
	samples := uint32(1)
	if frame.Samples > 1 {
		samples = uint32(frame.Samples)
	}
	if samples != 1 && samples != 4 {
		return aaline.ErrFallbackToCPU
	}

	if err := p.ensurePipeline(samples); err != nil {
		return err
	}
	w, h := uint32(target.Width), uint32(target.Height) //nolint:gosec // checked positive above
	if err := p.ensureTextures(w, h); err != nil {
		return err
	}

	uniformBuf, err := p.createAndUploadBuffer("line_params", frame.Source.Block(),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer p.device.DestroyBuffer(uniformBuf)

	bindGroup, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "line_params_bind",
		Layout: p.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: aaline.UniformBinding, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(),
				Size:   aaline.UniformBufferSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create line bind group: %w", err)
	}
	defer p.device.DestroyBindGroup(bindGroup)

	draws, data := packBatches(frame.Batches)
	var vertBuf hal.Buffer
	if len(data) > 0 {
		vertBuf, err = p.createAndUploadBuffer("line_vertices", data,
			gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
		if err != nil {
			return err
		}
		defer p.device.DestroyBuffer(vertBuf)
	}

	return p.encodeAndReadback(bindGroup, vertBuf, draws, frame.Clear, target)
}

// lineDraw is one batch inside the shared vertex buffer.
type lineDraw struct {
	first, count uint32
}

// packBatches concatenates the batches into one vertex buffer. Batches with
// fewer than two vertices produce no primitive and are skipped.
func packBatches(batches [][]aaline.Vertex) ([]lineDraw, []byte) {
	var total int
	for _, b := range batches {
		total += len(b)
	}
	data := make([]byte, 0, total*aaline.VertexStride)
	draws := make([]lineDraw, 0, len(batches))
	var first uint32
	for _, b := range batches {
		if len(b) < 2 {
			continue
		}
		data = aaline.AppendVertices(data, b)
		draws = append(draws, lineDraw{first: first, count: uint32(len(b))}) //nolint:gosec // batch sizes fit in uint32
		first += uint32(len(b))                                               //nolint:gosec // batch sizes fit in uint32
	}
	return draws, data
}

func (p *LinePipeline) ensurePipeline(samples uint32) error {
	if p.pipeline != nil && p.samples == samples {
		return nil
	}
	if p.pipeline != nil {
		// Attachments must match the new sample count too.
		p.destroyPipeline()
		p.destroyTextures()
	}

	if p.shader == nil {
		spirv, err := CompileLineShader(aaline.TransportUniform)
		if err != nil {
			return err
		}
		shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  "line_shader",
			Source: hal.ShaderSource{SPIRV: spirv},
		})
		if err != nil {
			return fmt.Errorf("create line shader: %w", err)
		}
		p.shader = shader
	}

	if p.uniformLayout == nil {
		layout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label: "line_params_layout",
			Entries: []gputypes.BindGroupLayoutEntry{
				{
					Binding:    aaline.UniformBinding,
					Visibility: gputypes.ShaderStagesVertexFragment,
					Buffer: &gputypes.BufferBindingLayout{
						Type:           gputypes.BufferBindingTypeUniform,
						MinBindingSize: aaline.UniformBufferSize,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("create line bind group layout: %w", err)
		}
		p.uniformLayout = layout
	}

	if p.pipeLayout == nil {
		pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
			Label:            "line_pipe_layout",
			BindGroupLayouts: []hal.BindGroupLayout{p.uniformLayout},
		})
		if err != nil {
			return fmt.Errorf("create line pipeline layout: %w", err)
		}
		p.pipeLayout = pipeLayout
	}

	blend := lineBlendState()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "line_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: lineVertexEntry,
			Buffers:    lineVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: lineFragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    lineColorFormat,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            lineDepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionAlways,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyLineList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: samples,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create line pipeline: %w", err)
	}
	p.pipeline = pipeline
	p.samples = samples
	return nil
}

// lineBlendState is straight source-over on every channel, alpha included.
func lineBlendState() gputypes.BlendState {
	c := gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactorSrcAlpha,
		DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
		Operation: gputypes.BlendOperationAdd,
	}
	return gputypes.BlendState{Color: c, Alpha: c}
}

// lineVertexLayout returns the vertex buffer layout matching
// aaline.EncodeVertices.
func lineVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: aaline.VertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: aaline.PositionOffset, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x4, Offset: aaline.ColorOffset, ShaderLocation: 1},
			},
		},
	}
}

// ensureTextures creates or recreates the color, depth and resolve
// attachments when the dimensions change.
func (p *LinePipeline) ensureTextures(w, h uint32) error {
	if p.width == w && p.height == h && p.resolveTex != nil {
		return nil
	}
	p.destroyTextures()

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	if p.samples > 1 {
		tex, view, err := p.createAttachment("line_msaa", size, p.samples, lineColorFormat,
			gputypes.TextureUsageRenderAttachment)
		if err != nil {
			return err
		}
		p.msaaTex, p.msaaView = tex, view
	}

	tex, view, err := p.createAttachment("line_depth", size, p.samples, lineDepthFormat,
		gputypes.TextureUsageRenderAttachment)
	if err != nil {
		p.destroyTextures()
		return err
	}
	p.depthTex, p.depthView = tex, view

	// Single-sample target read back by CopyTextureToBuffer.
	tex, view, err = p.createAttachment("line_resolve", size, 1, lineColorFormat,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	if err != nil {
		p.destroyTextures()
		return err
	}
	p.resolveTex, p.resolveView = tex, view

	p.width = w
	p.height = h
	slogger().Debug("gpu-line: attachments created", "width", w, "height", h, "samples", p.samples)
	return nil
}

func (p *LinePipeline) createAttachment(
	label string, size hal.Extent3D, samples uint32,
	format gputypes.TextureFormat, usage gputypes.TextureUsage,
) (hal.Texture, hal.TextureView, error) {
	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s texture: %w", label, err)
	}
	view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		p.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return tex, view, nil
}

// encodeAndReadback records the line pass, copies the single-sample target
// to a staging buffer, submits, waits and copies the pixels into target.
func (p *LinePipeline) encodeAndReadback(
	bindGroup hal.BindGroup, vertBuf hal.Buffer, draws []lineDraw,
	clear aaline.RGBA, target aaline.GPURenderTarget,
) error {
	w, h := p.width, p.height

	encoder, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "line_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("line_render"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	color := hal.RenderPassColorAttachment{
		View:       p.resolveView,
		LoadOp:     gputypes.LoadOpClear,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: gputypes.Color{R: clear.R, G: clear.G, B: clear.B, A: clear.A},
	}
	if p.msaaView != nil {
		color.View = p.msaaView
		color.ResolveTarget = p.resolveView
		color.StoreOp = gputypes.StoreOpDiscard
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "line_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{color},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            p.depthView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	rp.SetViewport(0, 0, float32(w), float32(h), 0, 1)
	if len(draws) > 0 {
		rp.SetPipeline(p.pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.SetVertexBuffer(0, vertBuf, 0)
		for _, d := range draws {
			rp.Draw(d.count, 1, d.first, 0)
		}
	}
	rp.End()

	// The resolve texture leaves the pass as a color attachment;
	// CopyTextureToBuffer needs it as a copy source.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: p.resolveTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	rowPitch := alignUp(w*4, copyRowAlignment)
	stagingSize := uint64(rowPitch) * uint64(h)
	stagingBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "line_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer p.device.DestroyBuffer(stagingBuf)

	encoder.CopyTextureToBuffer(p.resolveTex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: rowPitch, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: p.resolveTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer p.device.FreeCommandBuffer(cmdBuf)

	if _, err := p.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := p.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}

	mapping, err := p.device.MapBuffer(stagingBuf, 0, stagingSize)
	if err != nil {
		return fmt.Errorf("map staging buffer: %w", err)
	}
	staged := unsafe.Slice((*byte)(mapping.Ptr), stagingSize)
	copyRowsFlipped(target, staged, int(rowPitch))
	if err := p.device.UnmapBuffer(stagingBuf); err != nil {
		return fmt.Errorf("unmap staging buffer: %w", err)
	}
	return nil
}

// copyRowsFlipped copies GPU rows (row 0 at the top of the framebuffer)
// into target, where row 0 is window y = 0 at the bottom.
func copyRowsFlipped(target aaline.GPURenderTarget, staged []byte, rowPitch int) {
	stride := target.Stride
	if stride == 0 {
		stride = target.Width * 4
	}
	rowBytes := target.Width * 4
	for y := range target.Height {
		src := staged[y*rowPitch : y*rowPitch+rowBytes]
		dstRow := target.Height - 1 - y
		copy(target.Data[dstRow*stride:dstRow*stride+rowBytes], src)
	}
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func (p *LinePipeline) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := p.queue.WriteBuffer(buf, 0, data); err != nil {
		p.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("upload %s: %w", label, err)
	}
	return buf, nil
}

// Destroy releases every GPU object owned by the pipeline.
func (p *LinePipeline) Destroy() {
	if p.device == nil {
		return
	}
	p.destroyTextures()
	p.destroyPipeline()
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

func (p *LinePipeline) destroyPipeline() {
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	p.samples = 0
}

// destroyTextures releases all attachments and resets dimensions.
func (p *LinePipeline) destroyTextures() {
	views := []*hal.TextureView{&p.resolveView, &p.depthView, &p.msaaView}
	for _, v := range views {
		if *v != nil {
			p.device.DestroyTextureView(*v)
			*v = nil
		}
	}
	textures := []*hal.Texture{&p.resolveTex, &p.depthTex, &p.msaaTex}
	for _, t := range textures {
		if *t != nil {
			p.device.DestroyTexture(*t)
			*t = nil
		}
	}
	p.width = 0
	p.height = 0
}
