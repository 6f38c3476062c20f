package logic

// Error is a constant error value.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrBufferFull = Error("interval buffer full")
)
