// Package ankihorse is the Composition Root for the ankihorse application.
//
// It fills flashcard fields from external sources: pictures from image
// search, pronunciations from text-to-speech services, and example sentences
// from a corpus. Each addon pairs an update strategy with the fields it reads
// and writes, and runs either when one of its source fields is edited or on
// demand over every note.
//
// The default host is a vault: a directory of Markdown notes with YAML
// frontmatter, a templates file, and a media directory. Addons and provider
// keys are declared in <vault>/ankihorse.yaml.
//
// Usage:
//
//	host, err := ankihorse.Open(ctx, "./cards",
//		ankihorse.WithAutoInit(true),
//		ankihorse.WithLogger(logger),
//	)
//
//	// Fill one note
//	applied, err := host.Apply(ctx, "neko.md")
//
//	// Fill notes as they are edited
//	err = host.Watch(ctx)
package ankihorse
