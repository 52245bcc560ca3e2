package gitrepo

// Journal commits every library write under a fixed author.
type Journal struct {
	svc    *Service
	author Author
}

func (s *Service) Journal(author Author) *Journal {
	return &Journal{svc: s, author: author}
}

func (j *Journal) Record(slug string, source []byte, message string) error {
	_, err := j.svc.Commit(slug, source, j.author, message)
	return err
}
