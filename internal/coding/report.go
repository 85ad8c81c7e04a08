package coding

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"
	"time"
)

// SequenceRecord is one interval of the canonical machine-readable export.
// All numeric fields are rounded to three decimal places.
type SequenceRecord struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Duration  float64 `json:"duration"`
	Label     string  `json:"label"`
	IsGap     bool    `json:"isGap"`
}

// BuildSequence returns the normalized interval sequence for one stream,
// rounded for export. It is a pure function of the project, so the export is
// re-derivable at any time.
func BuildSequence(p *Project, stream *TimelineStream) []SequenceRecord {
	intervals := Normalize(p.StreamSegments(stream.ID), stream.Codes, EffectiveDuration(p))
	records := make([]SequenceRecord, len(intervals))
	for i, iv := range intervals {
		records[i] = SequenceRecord{
			StartTime: round3(iv.StartTime),
			EndTime:   round3(iv.EndTime),
			Duration:  round3(iv.Duration),
			Label:     iv.Label,
			IsGap:     iv.IsGap,
		}
	}
	return records
}

// SequenceJSON serializes a stream's interval sequence as indented JSON.
func SequenceJSON(p *Project, stream *TimelineStream) ([]byte, error) {
	b, err := json.MarshalIndent(BuildSequence(p, stream), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sequence: %w", err)
	}
	return b, nil
}

// SequenceCSV flattens a stream's interval sequence to fixed-column rows:
// StartTime,EndTime,Duration,Label,IsGap with numerics to three decimals and
// the label always quoted.
func SequenceCSV(p *Project, stream *TimelineStream) string {
	var b strings.Builder
	b.WriteString("StartTime,EndTime,Duration,Label,IsGap\n")
	for _, rec := range BuildSequence(p, stream) {
		b.WriteString(fmt.Sprintf("%.3f,%.3f,%.3f,%s,%t\n",
			rec.StartTime, rec.EndTime, rec.Duration, quoteCSV(rec.Label), rec.IsGap))
	}
	return b.String()
}

// ProjectJSON serializes the full project backup. Marshaling is
// deterministic, so a load/save cycle reproduces the bytes exactly.
func ProjectJSON(p *Project) ([]byte, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	return b, nil
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// HTMLReport renders the self-contained visual document: per-stream doughnut
// charts and timeline strips, transcript frequency bars, and the annotated
// transcript table. The output references no external assets, so it stays
// viewable without the original project.
func HTMLReport(p *Project) string {
	dur := EffectiveDuration(p)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"UTF-8\">\n")
	b.WriteString(fmt.Sprintf("<title>Analysis Report: %s</title>\n", html.EscapeString(p.Name)))
	b.WriteString("<style>\n")
	b.WriteString("body{font-family:sans-serif;background:#f8fafc;color:#1e293b;max-width:960px;margin:0 auto;padding:32px}\n")
	b.WriteString("section{background:#fff;border:1px solid #e2e8f0;border-radius:12px;padding:24px;margin-bottom:24px}\n")
	b.WriteString("h3{font-size:13px;text-transform:uppercase;letter-spacing:2px;color:#64748b}\n")
	b.WriteString("table{width:100%;border-collapse:collapse;font-size:14px}\n")
	b.WriteString("td,th{padding:8px 12px;text-align:left;border-bottom:1px solid #f1f5f9}\n")
	b.WriteString(".strip{position:relative;width:100%;height:40px;background:#f1f5f9;border-radius:8px;overflow:hidden;border:1px solid #e2e8f0}\n")
	b.WriteString(".badge{padding:2px 8px;border-radius:4px;font-size:10px;font-weight:bold;color:#fff}\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	b.WriteString("<header>\n")
	b.WriteString(fmt.Sprintf("<h1>Analysis Report: %s</h1>\n", html.EscapeString(p.Name)))
	created := time.UnixMilli(p.CreatedAt).UTC().Format("2006-01-02")
	b.WriteString(fmt.Sprintf("<p>Created: %s | Duration: %.2fs | Streams: %d</p>\n", created, dur, len(p.Streams)))
	b.WriteString("</header>\n")

	for i := range p.Streams {
		writeStreamSection(&b, p, &p.Streams[i], dur)
	}

	writeTranscriptBars(&b, CountTranscript(p.Subtitles, p.TranscriptCodes))
	writeTranscriptTable(&b, p)

	b.WriteString("<footer><p>Generated by QualiVision</p></footer>\n")
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func writeStreamSection(b *strings.Builder, p *Project, stream *TimelineStream, dur float64) {
	shares := StreamShares(p, stream)

	b.WriteString("<section>\n")
	b.WriteString(fmt.Sprintf("<h2>%s</h2>\n", html.EscapeString(stream.Name)))

	b.WriteString("<h3>Time Composition</h3>\n")
	b.WriteString("<svg width=\"200\" height=\"200\" viewBox=\"0 0 200 200\">\n")
	angle := 0.0
	for _, share := range shares {
		slice := share.Seconds / dur * 360
		b.WriteString(piePath(angle, slice, share.Color))
		angle += slice
	}
	b.WriteString("<circle cx=\"100\" cy=\"100\" r=\"50\" fill=\"white\"/>\n</svg>\n")

	b.WriteString("<table>\n")
	for _, share := range shares {
		b.WriteString(fmt.Sprintf("<tr><td><span class=\"badge\" style=\"background:%s\">%s</span></td><td>%.2fs</td><td>%.1f%%</td></tr>\n",
			share.Color, html.EscapeString(share.Name), share.Seconds, share.Seconds/dur*100))
	}
	b.WriteString("</table>\n")

	b.WriteString("<h3>Sequence Timeline</h3>\n<div class=\"strip\">\n")
	for _, seg := range p.StreamSegments(stream.ID) {
		code, ok := findCode(stream.Codes, seg.CodeID)
		if !ok {
			// Orphaned reference: render as absent, never as an error.
			continue
		}
		left := seg.StartTime / dur * 100
		width := (seg.EndTime - seg.StartTime) / dur * 100
		b.WriteString(fmt.Sprintf("<div title=\"%s\" style=\"position:absolute;top:0;bottom:0;left:%.3f%%;width:%.3f%%;background:%s\"></div>\n",
			html.EscapeString(code.Label), left, width, code.Color))
	}
	b.WriteString("</div>\n</section>\n")
}

// piePath emits one doughnut slice as an SVG path, startAngle and sliceAngle
// in degrees measured clockwise from twelve o'clock.
func piePath(startAngle, sliceAngle float64, color string) string {
	x1 := math.Cos((startAngle-90)*math.Pi/180)*80 + 100
	y1 := math.Sin((startAngle-90)*math.Pi/180)*80 + 100
	x2 := math.Cos((startAngle+sliceAngle-90)*math.Pi/180)*80 + 100
	y2 := math.Sin((startAngle+sliceAngle-90)*math.Pi/180)*80 + 100
	largeArc := 0
	if sliceAngle > 180 {
		largeArc = 1
	}
	return fmt.Sprintf("<path d=\"M 100 100 L %.2f %.2f A 80 80 0 %d 1 %.2f %.2f Z\" fill=\"%s\"/>\n",
		x1, y1, largeArc, x2, y2, color)
}

func writeTranscriptBars(b *strings.Builder, counts []CategoryCount) {
	b.WriteString("<section>\n<h3>Transcript Category Frequency</h3>\n")
	if len(counts) == 0 {
		b.WriteString("<p><em>No coded transcript themes yet.</em></p>\n</section>\n")
		return
	}
	max := 1
	for _, c := range counts {
		if c.Count > max {
			max = c.Count
		}
	}
	for _, c := range counts {
		width := float64(c.Count) / float64(max) * 100
		b.WriteString(fmt.Sprintf("<div style=\"display:flex;align-items:center;margin-bottom:8px\"><div style=\"width:140px;font-size:12px\">%s</div><div style=\"flex:1;background:#e2e8f0;border-radius:4px\"><div style=\"width:%.1f%%;background:%s;color:#fff;font-size:11px;padding:2px 6px;border-radius:4px\">%d</div></div></div>\n",
			html.EscapeString(c.Name), width, c.Color, c.Count))
	}
	b.WriteString("</section>\n")
}

func writeTranscriptTable(b *strings.Builder, p *Project) {
	b.WriteString("<section>\n<h3>Annotated Transcript</h3>\n<table>\n")
	b.WriteString("<tr><th>Time</th><th>Category</th><th>Content</th></tr>\n")
	for _, sub := range p.Subtitles {
		badge := "<span style=\"color:#cbd5e1\">Uncoded</span>"
		if code, ok := findCode(p.TranscriptCodes, sub.CodeID); ok {
			badge = fmt.Sprintf("<span class=\"badge\" style=\"background:%s\">%s</span>",
				code.Color, html.EscapeString(code.Label))
		}
		// Subtitle HTML is an opaque blob and is passed through verbatim.
		b.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			formatClock(sub.StartTime), badge, sub.HTML))
	}
	b.WriteString("</table>\n</section>\n")
}

// formatClock renders seconds as MM:SS.
func formatClock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
