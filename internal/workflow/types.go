package workflow

import (
	"encoding/json"
	"fmt"
)

// NodeKind is the class_type understood by the generation service.
type NodeKind string

const (
	KindUnetLoaderGGUF     NodeKind = "UnetLoaderGGUF"
	KindDualCLIPLoaderGGUF NodeKind = "DualCLIPLoaderGGUF"
	KindCLIPTextEncodeFlux NodeKind = "CLIPTextEncodeFlux"
	KindEmptySD3Latent     NodeKind = "EmptySD3LatentImage"
	KindKSampler           NodeKind = "KSampler"
	KindVAELoader          NodeKind = "VAELoader"
	KindVAEDecode          NodeKind = "VAEDecode"
	KindSaveImage          NodeKind = "SaveImage"
)

// Output references slot Slot of node Node. It serializes as ["<node>", slot].
type Output struct {
	Node string
	Slot int
}

func (o Output) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{o.Node, o.Slot})
}

func (o *Output) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("node reference must have 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &o.Node); err != nil {
		return fmt.Errorf("node reference id: %w", err)
	}
	if err := json.Unmarshal(raw[1], &o.Slot); err != nil {
		return fmt.Errorf("node reference slot: %w", err)
	}
	return nil
}

// Inputs maps input names to literal values or Output references.
type Inputs map[string]any

type Node struct {
	ClassType NodeKind `json:"class_type"`
	Inputs    Inputs   `json:"inputs"`
}

// Graph maps node ids to nodes.
type Graph map[string]Node

// Prompt is one predefined text-to-image job.
type Prompt struct {
	Name  string `json:"name"`
	Seed  int64  `json:"seed"`
	ClipL string `json:"clip_l"`
	T5XXL string `json:"t5xxl"`
}

// ModelSet holds the model files and sampler settings the pipeline loads.
type ModelSet struct {
	UnetName    string  `json:"unet_name"`
	ClipName1   string  `json:"clip_name1"`
	ClipName2   string  `json:"clip_name2"`
	ClipType    string  `json:"clip_type"`
	VAEName     string  `json:"vae_name"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	BatchSize   int     `json:"batch_size"`
	Steps       int     `json:"steps"`
	CFG         float64 `json:"cfg"`
	SamplerName string  `json:"sampler_name"`
	Scheduler   string  `json:"scheduler"`
	Denoise     float64 `json:"denoise"`
	Guidance    float64 `json:"guidance"`
}

// DefaultModelSet is the flux schnell GGUF setup at 512x512.
func DefaultModelSet() ModelSet {
	return ModelSet{
		UnetName:    "flux1-schnell-Q4_K_S.gguf",
		ClipName1:   "clip_l.safetensors",
		ClipName2:   "t5-v1_1-xxl-encoder-Q4_K_M.gguf",
		ClipType:    "flux",
		VAEName:     "ae.safetensors",
		Width:       512,
		Height:      512,
		BatchSize:   1,
		Steps:       4,
		CFG:         1.0,
		SamplerName: "euler",
		Scheduler:   "simple",
		Denoise:     1.0,
		Guidance:    3.5,
	}
}

// JobRequest is a built graph plus the prefix and seed that identify it.
type JobRequest struct {
	prefix string
	seed   int64
	graph  Graph
}

func (r JobRequest) Prefix() string { return r.prefix }
func (r JobRequest) Seed() int64    { return r.seed }

// Graph returns a copy of the request graph.
func (r JobRequest) Graph() Graph {
	return r.graph.clone()
}

func (g Graph) clone() Graph {
	ret := make(Graph, len(g))
	for id, node := range g {
		inputs := make(Inputs, len(node.Inputs))
		for k, v := range node.Inputs {
			inputs[k] = v
		}
		ret[id] = Node{ClassType: node.ClassType, Inputs: inputs}
	}
	return ret
}
