// Package language normalizes language identifiers exchanged with callers,
// Whisper, and ffmpeg.
//
// Callers send ISO 639-1 codes, Whisper reports full English names
// ("turkish"), and container metadata wants ISO 639-2. Normalize folds all of
// them, plus BCP 47 tags such as "pt-BR", down to the two-letter base code.
// Catalog lists the languages offered for dubbing, in display order.
package language
