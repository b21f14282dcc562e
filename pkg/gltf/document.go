package gltf

import "encoding/json"

// JSON schema of the subset of glTF 2.0 the decoder reads. Optional indices
// are pointers so that a missing index is distinguishable from index 0.

type document struct {
	ExtensionsUsed     []string        `json:"extensionsUsed"`
	ExtensionsRequired []string        `json:"extensionsRequired"`
	Asset              *jsonAsset      `json:"asset"`
	Buffers            []jsonBuffer    `json:"buffers"`
	BufferViews        []jsonView      `json:"bufferViews"`
	Accessors          []jsonAccessor  `json:"accessors"`
	Meshes             []jsonMesh      `json:"meshes"`
	Nodes              []jsonNode      `json:"nodes"`
	Scene              *int            `json:"scene"`
	Scenes             []jsonScene     `json:"scenes"`
	Skins              []jsonSkin      `json:"skins"`
	Animations         []jsonAnimation `json:"animations"`
	Materials          []jsonNamed     `json:"materials"`
	Cameras            []jsonNamed     `json:"cameras"`
}

type jsonAsset struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion"`
	Generator  string `json:"generator"`
	Copyright  string `json:"copyright"`
}

type jsonNamed struct {
	Name string `json:"name"`
}

type jsonBuffer struct {
	URI        string `json:"uri"`
	ByteLength int    `json:"byteLength"`
	Name       string `json:"name"`
}

type jsonView struct {
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset"`
	ByteLength int    `json:"byteLength"`
	ByteStride int    `json:"byteStride"`
	Target     int    `json:"target"`
	Name       string `json:"name"`
}

type jsonAccessor struct {
	BufferView    *int        `json:"bufferView"`
	ByteOffset    int         `json:"byteOffset"`
	ComponentType int         `json:"componentType"`
	Normalized    bool        `json:"normalized"`
	Count         int         `json:"count"`
	Type          string      `json:"type"`
	Min           []float32   `json:"min"`
	Max           []float32   `json:"max"`
	Sparse        *jsonSparse `json:"sparse"`
	Name          string      `json:"name"`
}

type jsonSparse struct {
	Count   int `json:"count"`
	Indices struct {
		BufferView    int `json:"bufferView"`
		ByteOffset    int `json:"byteOffset"`
		ComponentType int `json:"componentType"`
	} `json:"indices"`
	Values struct {
		BufferView int `json:"bufferView"`
		ByteOffset int `json:"byteOffset"`
	} `json:"values"`
}

type jsonMesh struct {
	Primitives []jsonPrimitive `json:"primitives"`
	Weights    []float32       `json:"weights"`
	Name       string          `json:"name"`
}

type jsonPrimitive struct {
	Attributes map[string]int   `json:"attributes"`
	Indices    *int             `json:"indices"`
	Material   *int             `json:"material"`
	Mode       *int             `json:"mode"`
	Targets    []map[string]int `json:"targets"`
}

type jsonNode struct {
	Camera      *int         `json:"camera"`
	Children    []int        `json:"children"`
	Skin        *int         `json:"skin"`
	Matrix      *[16]float32 `json:"matrix"`
	Mesh        *int         `json:"mesh"`
	Rotation    *[4]float32  `json:"rotation"`
	Scale       *[3]float32  `json:"scale"`
	Translation *[3]float32  `json:"translation"`
	Weights     []float32    `json:"weights"`
	Name        string       `json:"name"`
}

type jsonScene struct {
	Nodes []int  `json:"nodes"`
	Name  string `json:"name"`
}

type jsonSkin struct {
	InverseBindMatrices *int   `json:"inverseBindMatrices"`
	Skeleton            *int   `json:"skeleton"`
	Joints              []int  `json:"joints"`
	Name                string `json:"name"`
}

type jsonAnimation struct {
	Channels []jsonChannel `json:"channels"`
	Samplers []jsonSampler `json:"samplers"`
	Name     string        `json:"name"`
}

type jsonChannel struct {
	Sampler int `json:"sampler"`
	Target  struct {
		Node *int   `json:"node"`
		Path string `json:"path"`
	} `json:"target"`
}

type jsonSampler struct {
	Input         int    `json:"input"`
	Interpolation string `json:"interpolation"`
	Output        int    `json:"output"`
}

func parseDocument(data []byte) (*document, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
