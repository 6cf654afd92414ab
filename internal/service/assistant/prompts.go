package assistant

import "aminestudio/internal/gemini"

// systemInstruction fixes the assistant's persona for consultations.
const systemInstruction = `You are a senior architectural consultant and structural engineer embedded in a design studio. You advise on massing, structure, materials and spatial organization. When the user shares a sketch, analyze its architectural intent before proposing changes. Be precise and keep answers grounded in buildable reality. When asked for code or data formats, emit them inside fenced code blocks.`

// defaultAnalyzeText stands in for the user message when a sketch is
// sent with no accompanying text.
const defaultAnalyzeText = "Analyze this architectural sketch and describe its massing, structure and spatial organization."

// seedMessageContent opens every new consultation.
const seedMessageContent = "Welcome to the studio. I am your architectural consultant. Share a sketch or describe the project you have in mind, and we will develop it together."

// refineInstruction asks the image model to clean a rough sketch into
// plottable line art.
const refineInstruction = `Redraw this rough architectural sketch as clean, precise black line art on a pure white background. Keep every structural line from the original, straighten wobbly strokes, remove shading, texture and stray marks. Output only the refined drawing.`

// renderPreamble frames visualization prompts; the user's scene
// description is appended.
const renderPreamble = "High-end professional architectural visualization. Realistic materials, soft cinematic lighting, 8k resolution, photorealistic textures, global illumination. Scene: "

// modelInstruction asks for the primitive-scene JSON.
const modelInstruction = `Study this architectural drawing and reconstruct it as a 3D massing model. Decompose the design into box, cylinder and sphere primitives with positions, rotations and dimensions in meters. Use symmetry where the design repeats.`

// dxfInstruction asks for a CAD export of an SVG plan.
const dxfInstruction = `Convert the following SVG plan to a minimal valid DXF file (R12 ASCII). Map every path to LINE and ARC entities on layer PLAN. Output only the DXF content.

`

// failureText translates a backend failure into the assistant's voice.
func failureText(err error) string {
	switch {
	case gemini.IsKind(err, gemini.KindAuth):
		return "I cannot reach the design service because the studio's API credentials are missing or invalid. Set the GEMINI_API_KEY environment variable and restart the studio."
	case gemini.IsKind(err, gemini.KindQuota):
		return "The design service is over its request quota at the moment. Give it a minute and send your message again."
	case gemini.IsKind(err, gemini.KindMalformedResponse):
		return "The design service sent back something I could not read. Try rephrasing your request."
	case gemini.IsKind(err, gemini.KindMalformedInput):
		return "That request could not be processed as sent. Check the attached image and try again."
	default:
		return "I could not reach the design service. Check your connection and try again."
	}
}
