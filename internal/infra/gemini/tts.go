// internal/infra/gemini/tts.go
package gemini

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini TTS returns raw 16-bit PCM at 24 kHz mono; Telegram wants a
// container, so the clip is wrapped into a WAV below.
const (
	ttsSampleRate  = 24000
	ttsChannels    = 1
	ttsSampleWidth = 2
)

// Synthesize converts text into a WAV clip via the Gemini audio response
// modality. Callers treat failures as best-effort.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil, fmt.Errorf("cannot synthesize empty text")
	}
	if c.client == nil {
		return nil, fmt.Errorf("gemini API key is not configured")
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
	}
	if c.ttsVoice != "" {
		cfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.ttsVoice},
			},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.ttsModel, genai.Text(clean), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini TTS request: %w", err)
	}

	pcm := extractAudio(resp)
	if len(pcm) == 0 {
		return nil, fmt.Errorf("gemini TTS response did not include audio data")
	}
	return pcmToWAV(pcm, ttsChannels, ttsSampleRate, ttsSampleWidth), nil
}

func extractAudio(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

// pcmToWAV wraps raw PCM samples into a minimal RIFF/WAVE container.
func pcmToWAV(pcm []byte, channels, rate, sampleWidth int) []byte {
	dataLen := len(pcm)
	blockAlign := channels * sampleWidth
	byteRate := rate * blockAlign

	buf := make([]byte, 0, 44+dataLen)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataLen))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16) // PCM chunk size
	buf = binary.LittleEndian.AppendUint16(buf, 1)  // PCM format
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(byteRate))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(sampleWidth*8))
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataLen))
	buf = append(buf, pcm...)
	return buf
}
