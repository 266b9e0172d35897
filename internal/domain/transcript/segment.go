// Package transcript turns recognizer word timings into segments and maps
// word selections and phrases back to source time ranges.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/transcut/internal/domain/frames"
	"github.com/forPelevin/transcut/internal/types"
	"github.com/google/uuid"
)

const (
	MaxWordsPerSegment = 12
	// MaxPause is the largest gap in seconds between two words of one segment.
	MaxPause = 0.75

	DefaultSpeakerID  = "speaker_0"
	DefaultConfidence = 0.9
)

// Segment groups chronologically ordered words greedily. A segment is closed
// when it already holds MaxWordsPerSegment words or when the gap before the
// next word exceeds MaxPause. Segments with no text are dropped.
func Segment(words []types.WordChunk, fps int) []types.TranscriptSegment {
	if len(words) == 0 {
		return []types.TranscriptSegment{}
	}

	var (
		segs []types.TranscriptSegment
		cur  *types.TranscriptSegment
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.StartFrame = frames.ToFrame(cur.Start, fps)
		cur.EndFrame = frames.ToFrame(cur.End, fps)
		segs = append(segs, *cur)
		cur = nil
	}

	for i, w := range words {
		if cur != nil {
			pause := w.Start - words[i-1].End
			if len(cur.Words) >= MaxWordsPerSegment || pause > MaxPause {
				flush()
			}
		}
		text := strings.TrimSpace(w.Text)
		if cur == nil {
			cur = &types.TranscriptSegment{
				ID:         fmt.Sprintf("segment_%d", len(segs)),
				Start:      w.Start,
				Text:       text,
				SpeakerID:  DefaultSpeakerID,
				Confidence: DefaultConfidence,
			}
		} else if text != "" {
			if cur.Text != "" {
				cur.Text += " "
			}
			cur.Text += text
		}
		cur.End = w.End
		cur.Words = append(cur.Words, types.TranscriptWord{
			ID:         fmt.Sprintf("word_%d_%d", len(segs), len(cur.Words)),
			Text:       text,
			Start:      w.Start,
			End:        w.End,
			StartFrame: frames.ToFrame(w.Start, fps),
			EndFrame:   frames.ToFrame(w.End, fps),
			Confidence: DefaultConfidence,
		})
	}
	flush()

	out := make([]types.TranscriptSegment, 0, len(segs))
	for _, s := range segs {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Build wraps a recognizer result into a transcript for mediaID.
func Build(mediaID string, res types.RecognizerResult, language, modelVersion string, now time.Time) types.Transcript {
	segs := Segment(res.Chunks, frames.DefaultFPS)
	ids := make([]string, 0, len(segs))
	for _, s := range segs {
		ids = append(ids, s.ID)
	}
	if language == "" {
		language = "en"
	}
	return types.Transcript{
		ID:       "transcript_" + mediaID + "_" + uuid.NewString()[:8],
		MediaID:  mediaID,
		Language: language,
		FullText: strings.TrimSpace(res.Text),
		Segments: segs,
		Speakers: []types.Speaker{{
			ID:          DefaultSpeakerID,
			DisplayName: "Speaker 1",
			Color:       "#3b82f6",
			SegmentIDs:  ids,
		}},
		GeneratedAt:  now.UTC(),
		ModelVersion: modelVersion,
	}
}

// Words flattens a transcript's segments into one word sequence.
func Words(tr types.Transcript) []types.TranscriptWord {
	var out []types.TranscriptWord
	for _, s := range tr.Segments {
		out = append(out, s.Words...)
	}
	return out
}

// RecomputeFrames refreshes derived frame numbers from seconds.
func RecomputeFrames(tr *types.Transcript, fps int) {
	for i := range tr.Segments {
		s := &tr.Segments[i]
		s.StartFrame = frames.ToFrame(s.Start, fps)
		s.EndFrame = frames.ToFrame(s.End, fps)
		for j := range s.Words {
			w := &s.Words[j]
			w.StartFrame = frames.ToFrame(w.Start, fps)
			w.EndFrame = frames.ToFrame(w.End, fps)
		}
	}
}
