package port

// TokenCodec converts between text and sub-word token ids.
type TokenCodec interface {
	Encode(text string) []int

	Decode(tokens []int) string
}
