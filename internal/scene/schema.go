package scene

// ResponseSchema is the JSON schema sent with model-construction
// requests so the backend returns decodable scene JSON.
func ResponseSchema() map[string]any {
	vec3 := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "number"},
			"y": map[string]any{"type": "number"},
			"z": map[string]any{"type": "number"},
		},
		"required": []string{"x", "y", "z"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"primitives": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"type": map[string]any{
							"type": "string",
							"enum": []string{"box", "cylinder", "sphere"},
						},
						"dimensions": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"width":  map[string]any{"type": "number"},
								"height": map[string]any{"type": "number"},
								"depth":  map[string]any{"type": "number"},
								"radius": map[string]any{"type": "number"},
							},
						},
						"position": vec3,
						"rotation": vec3,
						"symmetry": map[string]any{
							"type": "string",
							"enum": []string{"none", "quadrant", "mirror_x"},
						},
					},
					"required": []string{"name", "type", "position"},
				},
			},
		},
		"required": []string{"primitives"},
	}
}
