package coding

import "math"

// StreamTotals summarizes one stream's normalized timeline: accumulated
// seconds per category plus the uncoded remainder. Values are rounded to two
// decimal places for reporting; the normalizer itself works at full
// precision. Categories that accumulated no time are absent from PerCode.
type StreamTotals struct {
	PerCode map[CodeID]float64
	Uncoded float64
}

// CategoryShare is one display row of a stream's time composition.
type CategoryShare struct {
	CodeID  CodeID  `json:"codeId"`
	Name    string  `json:"name"`
	Seconds float64 `json:"seconds"`
	Color   string  `json:"color"`
}

// CategoryCount is one display row of transcript category frequency.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

// AggregateStream normalizes the stream's segments and sums interval
// durations by category. Overlapping intervals each contribute their full
// duration, so totals can exceed the effective duration; that is the
// normalizer's overlap pass-through, not an error.
func AggregateStream(p *Project, stream *TimelineStream) StreamTotals {
	intervals := Normalize(p.StreamSegments(stream.ID), stream.Codes, EffectiveDuration(p))

	perCode := make(map[CodeID]float64)
	uncoded := 0.0
	for _, iv := range intervals {
		if iv.IsGap {
			uncoded += iv.Duration
			continue
		}
		perCode[iv.CodeID] += iv.Duration
	}

	totals := StreamTotals{PerCode: make(map[CodeID]float64), Uncoded: round2(uncoded)}
	for id, secs := range perCode {
		if r := round2(secs); r > 0 {
			totals.PerCode[id] = r
		}
	}
	return totals
}

// StreamShares converts a stream's totals into display rows: one per palette
// category with nonzero time (in palette order), then the uncoded remainder.
// Time attributed to a deleted category is dropped from the rows, matching
// the neutral rendering of orphaned references.
func StreamShares(p *Project, stream *TimelineStream) []CategoryShare {
	totals := AggregateStream(p, stream)

	shares := make([]CategoryShare, 0, len(stream.Codes)+1)
	for _, code := range stream.Codes {
		if secs, ok := totals.PerCode[code.ID]; ok {
			shares = append(shares, CategoryShare{
				CodeID:  code.ID,
				Name:    code.Label,
				Seconds: secs,
				Color:   code.Color,
			})
		}
	}
	if totals.Uncoded > 0 {
		shares = append(shares, CategoryShare{
			CodeID:  UncodedCodeID,
			Name:    UncodedLabel,
			Seconds: totals.Uncoded,
			Color:   UncodedColor,
		})
	}
	return shares
}

// CountTranscript counts, per transcript category, how many subtitles carry
// that category. Zero-count categories are excluded from the result (but not
// from the source list).
func CountTranscript(subtitles []Subtitle, transcriptCodes []CodeDefinition) []CategoryCount {
	var out []CategoryCount
	for _, code := range transcriptCodes {
		n := 0
		for _, sub := range subtitles {
			if sub.CodeID == code.ID {
				n++
			}
		}
		if n > 0 {
			out = append(out, CategoryCount{Name: code.Label, Count: n, Color: code.Color})
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
