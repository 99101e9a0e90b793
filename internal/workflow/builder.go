package workflow

import (
	"fmt"
	"strconv"
)

// Builder assembles a Graph. Node ids are assigned sequentially and an
// Output can only be obtained for a node that already exists, so every
// built graph is acyclic.
type Builder struct {
	graph Graph
	next  int
}

func NewBuilder() *Builder {
	return &Builder{graph: make(Graph)}
}

func (b *Builder) add(kind NodeKind, inputs Inputs) Output {
	b.next++
	id := strconv.Itoa(b.next)
	b.graph[id] = Node{ClassType: kind, Inputs: inputs}
	return Output{Node: id, Slot: 0}
}

func (b *Builder) UnetLoaderGGUF(unetName string) Output {
	return b.add(KindUnetLoaderGGUF, Inputs{"unet_name": unetName})
}

func (b *Builder) DualCLIPLoaderGGUF(clip1, clip2, clipType string) Output {
	return b.add(KindDualCLIPLoaderGGUF, Inputs{
		"clip_name1": clip1,
		"clip_name2": clip2,
		"type":       clipType,
	})
}

func (b *Builder) CLIPTextEncodeFlux(clip Output, clipL, t5xxl string, guidance float64) Output {
	return b.add(KindCLIPTextEncodeFlux, Inputs{
		"clip":     clip,
		"clip_l":   clipL,
		"t5xxl":    t5xxl,
		"guidance": guidance,
	})
}

func (b *Builder) EmptySD3LatentImage(width, height, batchSize int) Output {
	return b.add(KindEmptySD3Latent, Inputs{
		"width":      width,
		"height":     height,
		"batch_size": batchSize,
	})
}

// SamplerInputs are the KSampler inputs; the Output fields must come from
// the same Builder.
type SamplerInputs struct {
	Model       Output
	Positive    Output
	Negative    Output
	LatentImage Output
	Seed        int64
	Steps       int
	CFG         float64
	SamplerName string
	Scheduler   string
	Denoise     float64
}

func (b *Builder) KSampler(in SamplerInputs) Output {
	return b.add(KindKSampler, Inputs{
		"model":        in.Model,
		"seed":         in.Seed,
		"steps":        in.Steps,
		"cfg":          in.CFG,
		"sampler_name": in.SamplerName,
		"scheduler":    in.Scheduler,
		"positive":     in.Positive,
		"negative":     in.Negative,
		"latent_image": in.LatentImage,
		"denoise":      in.Denoise,
	})
}

func (b *Builder) VAELoader(vaeName string) Output {
	return b.add(KindVAELoader, Inputs{"vae_name": vaeName})
}

func (b *Builder) VAEDecode(samples, vae Output) Output {
	return b.add(KindVAEDecode, Inputs{"samples": samples, "vae": vae})
}

func (b *Builder) SaveImage(images Output, filenamePrefix string) Output {
	return b.add(KindSaveImage, Inputs{"images": images, "filename_prefix": filenamePrefix})
}

// Build validates references and returns a copy of the graph.
func (b *Builder) Build() (Graph, error) {
	if err := b.graph.Validate(); err != nil {
		return nil, err
	}
	return b.graph.clone(), nil
}

// Validate checks that every reference points at an existing node with a
// lower id.
func (g Graph) Validate() error {
	for id, node := range g {
		self, err := strconv.Atoi(id)
		if err != nil {
			return fmt.Errorf("node %q: id is not numeric", id)
		}
		for name, v := range node.Inputs {
			ref, ok := v.(Output)
			if !ok {
				continue
			}
			if _, exists := g[ref.Node]; !exists {
				return fmt.Errorf("node %s input %s: unknown node %q", id, name, ref.Node)
			}
			target, err := strconv.Atoi(ref.Node)
			if err != nil || target >= self {
				return fmt.Errorf("node %s input %s: reference to %q is not an earlier node", id, name, ref.Node)
			}
		}
	}
	return nil
}

// BuildTxt2Img builds the flux text-to-image pipeline for p. The saved
// image is prefixed with p.Name.
func BuildTxt2Img(p Prompt, m ModelSet) (JobRequest, error) {
	if p.Name == "" {
		return JobRequest{}, fmt.Errorf("prompt name is required")
	}

	b := NewBuilder()
	model := b.UnetLoaderGGUF(m.UnetName)
	clip := b.DualCLIPLoaderGGUF(m.ClipName1, m.ClipName2, m.ClipType)
	positive := b.CLIPTextEncodeFlux(clip, p.ClipL, p.T5XXL, m.Guidance)
	negative := b.CLIPTextEncodeFlux(clip, "", "", m.Guidance)
	latent := b.EmptySD3LatentImage(m.Width, m.Height, m.BatchSize)
	samples := b.KSampler(SamplerInputs{
		Model:       model,
		Positive:    positive,
		Negative:    negative,
		LatentImage: latent,
		Seed:        p.Seed,
		Steps:       m.Steps,
		CFG:         m.CFG,
		SamplerName: m.SamplerName,
		Scheduler:   m.Scheduler,
		Denoise:     m.Denoise,
	})
	vae := b.VAELoader(m.VAEName)
	decoded := b.VAEDecode(samples, vae)
	b.SaveImage(decoded, p.Name)

	graph, err := b.Build()
	if err != nil {
		return JobRequest{}, err
	}
	return JobRequest{prefix: p.Name, seed: p.Seed, graph: graph}, nil
}
