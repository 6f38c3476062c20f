package serial

// FakeWriter records written lines for test assertions.
type FakeWriter struct {
	// Lines contains every line written, without line endings.
	Lines []string

	// WriteError, if set, will be returned by WriteLine.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeWriter creates a FakeWriter for testing.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// WriteLine records the line.
func (f *FakeWriter) WriteLine(line string) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Lines = append(f.Lines, line)
	return nil
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded lines.
func (f *FakeWriter) Reset() {
	f.Lines = nil
	f.WriteError = nil
	f.Closed = false
}
