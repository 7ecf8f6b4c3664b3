package filepack

// Transform rewrites an entry's content in place while it is packed.
//
// content is the entry's slot in the archive buffer, so a transform cannot
// change the content length. A transform that changes what the bytes mean
// must also rewrite entry.Type; the header record is written after the
// transform runs, so the persisted tag reflects the change. Changes to any
// other Entry field are ignored.
type Transform func(entry *Entry, content []byte) error

// Restore reverses a Transform during extraction. content is a private copy
// of the entry's bytes and may be modified freely.
type Restore func(entry Entry, content []byte) error

// Identity leaves content and tag untouched.
func Identity(*Entry, []byte) error {
	return nil
}

// SealPipelines marks pipeline entries as encrypted. It is the hook point for
// obfuscating pipeline content; the bytes themselves are left unchanged.
func SealPipelines(entry *Entry, _ []byte) error {
	if entry.Type == TypePipeline {
		entry.Type = TypeEncryptedPipeline
	}
	return nil
}

// Chain runs transforms in order and stops at the first error.
func Chain(transforms ...Transform) Transform {
	return func(entry *Entry, content []byte) error {
		for _, t := range transforms {
			if t == nil {
				continue
			}
			if err := t(entry, content); err != nil {
				return err
			}
		}
		return nil
	}
}
