package mmsession

import "errors"

// Set of error variables for the failures a session can report. Every public
// operation wraps one of these so callers can classify failures with
// errors.Is and decide whether to retry with corrected input.
var (
	// ErrResourceLoad indicates a model or projection file could not be
	// loaded from disk.
	ErrResourceLoad = errors.New("resource load failure")

	// ErrPrerequisiteMissing indicates an operation was attempted before a
	// resource it depends on was initialized.
	ErrPrerequisiteMissing = errors.New("prerequisite missing")

	// ErrTokenize indicates the joint tokenizer rejected the formatted turn.
	ErrTokenize = errors.New("tokenize failure")

	// ErrDecode indicates the backend context update failed. This covers both
	// the initial turn evaluation and the per-token feed-back during
	// generation. After a mid-generation decode failure the caller should
	// start a fresh turn rather than resume.
	ErrDecode = errors.New("decode failure")

	// ErrTemplateMissing indicates the model provides no built-in chat
	// template and no template name was supplied.
	ErrTemplateMissing = errors.New("chat template missing")

	// ErrImageDecode indicates a file or buffer was not a valid image.
	ErrImageDecode = errors.New("image decode failure")
)
