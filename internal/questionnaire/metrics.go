package questionnaire

import (
	"github.com/myrjola/velocoach/internal/profile"
	"github.com/myrjola/velocoach/internal/ptr"
)

// Knowledge is the rider's declaration of which performance metrics they know.
type Knowledge string

const (
	KnowledgeBoth      Knowledge = "both"
	KnowledgeFTP       Knowledge = "ftp"
	KnowledgeHeartRate Knowledge = "hr"
	KnowledgeNone      Knowledge = "none"
)

func Knowledges() []Knowledge {
	return []Knowledge{KnowledgeBoth, KnowledgeFTP, KnowledgeHeartRate, KnowledgeNone}
}

func (k Knowledge) Valid() bool {
	switch k {
	case KnowledgeBoth, KnowledgeFTP, KnowledgeHeartRate, KnowledgeNone:
		return true
	}
	return false
}

// AsksFTP reports whether the FTP input is shown for k.
func (k Knowledge) AsksFTP() bool {
	return k == KnowledgeBoth || k == KnowledgeFTP
}

// AsksMaxHeartRate reports whether the max heart rate input is shown for k.
func (k Knowledge) AsksMaxHeartRate() bool {
	return k == KnowledgeBoth || k == KnowledgeHeartRate
}

// Metrics carries exactly the values the rider declared to know.
//
// The variants are [BothKnown], [FTPKnown], [HeartRateKnown] and [NoneKnown].
type Metrics interface {
	// apply collapses the variant into p. Unknown heart rate is derived from age and unknown FTP is left out.
	apply(p *profile.UserProfile)
}

type BothKnown struct {
	FTP          int
	MaxHeartRate int
}

type FTPKnown struct {
	FTP int
}

type HeartRateKnown struct {
	MaxHeartRate int
}

type NoneKnown struct{}

func (m BothKnown) apply(p *profile.UserProfile) {
	p.FTP = ptr.Ref(m.FTP)
	p.MaxHeartRate = ptr.Ref(m.MaxHeartRate)
}

func (m FTPKnown) apply(p *profile.UserProfile) {
	p.FTP = ptr.Ref(m.FTP)
	p.MaxHeartRate = derivedMaxHeartRate(p.Age)
}

func (m HeartRateKnown) apply(p *profile.UserProfile) {
	p.FTP = nil
	p.MaxHeartRate = ptr.Ref(m.MaxHeartRate)
}

func (NoneKnown) apply(p *profile.UserProfile) {
	p.FTP = nil
	p.MaxHeartRate = derivedMaxHeartRate(p.Age)
}

// DerivedMaxHeartRateBase is the constant of the 220 minus age estimate.
const DerivedMaxHeartRateBase = 220

func derivedMaxHeartRate(age int) *int {
	return ptr.Ref(DerivedMaxHeartRateBase - age)
}
