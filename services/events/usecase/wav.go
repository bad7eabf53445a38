package usecase

import (
	"encoding/binary"
	"math"
	"strings"
)

const (
	sampleRate    = 16000
	bitsPerSample = 16
	numChannels   = 1
)

// encodeSpeechWAV renders a placeholder tone whose length tracks the word
// count of the text, so local development produces playable audio of a
// believable duration without a real TTS voice.
func encodeSpeechWAV(text string) []byte {
	words := len(strings.Fields(text))
	seconds := float64(words) / 2.5
	if seconds < 1 {
		seconds = 1
	}
	if seconds > 30 {
		seconds = 30
	}

	numSamples := int(seconds * sampleRate)
	dataSize := numSamples * numChannels * bitsPerSample / 8

	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], numChannels)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*numChannels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(buf[32:34], numChannels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	// A soft 440Hz tone with a fade-out at the tail.
	for i := 0; i < numSamples; i++ {
		t := float64(i) / sampleRate
		amp := 0.2
		if remaining := seconds - t; remaining < 0.5 {
			amp *= remaining / 0.5
		}
		sample := int16(amp * math.MaxInt16 * math.Sin(2*math.Pi*440*t))
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(sample))
	}

	return buf
}
