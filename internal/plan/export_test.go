package plan

import "time"

func SetClock(s *Service, now func() time.Time) { s.now = now }

func SetCodeSource(s *Service, newCode func() (Code, error)) { s.newCode = newCode }
