package browser

type ErrNothingSelected struct{}

func (e *ErrNothingSelected) Error() string {
	return "nothing selected"
}

type ErrNoDirectory struct{}

func (e *ErrNoDirectory) Error() string {
	return "not a directory"
}
