package infer

import "strings"

// Stemmer reduces a word to a root used to match field prefixes against
// table names ("CustomerID" against "Customers").
type Stemmer interface {
	Stem(word string) string
}

// SuffixStemmer is the default Stemmer. It lowercases and drops one
// trailing plural suffix, checking "ies", then "es", then "s", and only
// when the word is longer than three characters: "Categories" becomes
// "categor", "Sales" becomes "sal", "Customers" becomes "customer". Crude,
// but both sides of every comparison go through the same reduction.
type SuffixStemmer struct{}

// Stem implements Stemmer.
func (SuffixStemmer) Stem(word string) string {
	w := strings.ToLower(word)
	if len(w) <= 3 {
		return w
	}
	for _, suffix := range []string{"ies", "es", "s"} {
		if strings.HasSuffix(w, suffix) {
			return strings.TrimSuffix(w, suffix)
		}
	}
	return w
}
