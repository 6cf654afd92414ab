package tracer

import (
	"strconv"
	"strings"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// renderSVG emits one stroked path element per contour.
func renderSVG(w, h int, contours [][]pathSegment, starts []point, strokeWidth float64) string {
	var sb strings.Builder
	sb.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="`)
	sb.WriteString(strconv.Itoa(w))
	sb.WriteString(`" height="`)
	sb.WriteString(strconv.Itoa(h))
	sb.WriteString(`" viewBox="0 0 `)
	sb.WriteString(strconv.Itoa(w))
	sb.WriteString(" ")
	sb.WriteString(strconv.Itoa(h))
	sb.WriteString("\">\n")

	for i, segs := range contours {
		sb.WriteString(`  <path d="`)
		sb.WriteString("M ")
		sb.WriteString(formatFloat(starts[i].x))
		sb.WriteString(" ")
		sb.WriteString(formatFloat(starts[i].y))
		for _, seg := range segs {
			if seg.kind == 'Q' {
				sb.WriteString(" Q ")
				sb.WriteString(formatFloat(seg.ctrl.x))
				sb.WriteString(" ")
				sb.WriteString(formatFloat(seg.ctrl.y))
				sb.WriteString(" ")
			} else {
				sb.WriteString(" L ")
			}
			sb.WriteString(formatFloat(seg.end.x))
			sb.WriteString(" ")
			sb.WriteString(formatFloat(seg.end.y))
		}
		sb.WriteString(` Z" fill="none" stroke="#000000" stroke-width="`)
		sb.WriteString(formatFloat(strokeWidth))
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}
