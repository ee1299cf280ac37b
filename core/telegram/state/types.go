package state

// Store holds one session per chat. Implementations must be safe for
// concurrent use; a chat without a session reports ok=false.
type Store[S any] interface {
	Get(chatID int64) (S, bool)
	Set(chatID int64, session S)
	Clear(chatID int64)
	Len() int
}
