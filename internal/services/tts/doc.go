// Package tts is the HTTP client for the narration service.
//
// The service accepts POST /generate with {text, voice, language} and answers
// either with JSON carrying an audio URL and word timings or with the raw
// WAV bytes. Raw audio is stored under the configured audio directory, its
// length read from the RIFF header, and word timings estimated from each
// word's share of the characters.
package tts
