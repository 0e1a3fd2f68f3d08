package stt

import (
	"context"

	gspeech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/yoockh/yoointerview/internal/speech"
)

type GoogleSpeech struct {
	c *gspeech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := gspeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: 16000,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// language example: "en-US"
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) ([]speech.Alternative, error) {
	if language == "" {
		language = "en-US"
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               language,
			MaxAlternatives:            MaxAlternatives,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, err
	}
	return alternativesFromResults(resp.Results), nil
}

// alternativesFromResults joins consecutive results of one clip: hypothesis i
// of the clip is the concatenation of hypothesis i (or the best one) of each
// result.
func alternativesFromResults(results []*speechpb.SpeechRecognitionResult) []speech.Alternative {
	width := 0
	for _, r := range results {
		if len(r.Alternatives) > width {
			width = len(r.Alternatives)
		}
	}
	if width == 0 {
		return nil
	}

	out := make([]speech.Alternative, width)
	for i := range out {
		var conf float64
		n := 0
		for _, r := range results {
			if len(r.Alternatives) == 0 {
				continue
			}
			alt := r.Alternatives[0]
			if i < len(r.Alternatives) {
				alt = r.Alternatives[i]
			}
			if out[i].Transcript != "" && alt.Transcript != "" {
				out[i].Transcript += " "
			}
			out[i].Transcript += alt.Transcript
			conf += float64(alt.Confidence)
			n++
		}
		if n > 0 {
			out[i].Confidence = conf / float64(n)
		}
	}
	return out
}
