// Package translate defines the text translation client.
package translate

import "context"

// Translator translates text into a target language.
type Translator interface {
	// Translate returns text rendered in target (BCP-47). The result may
	// contain HTML character references.
	Translate(ctx context.Context, text, target string) (string, error)

	Close() error
}
