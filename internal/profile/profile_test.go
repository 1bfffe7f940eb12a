package profile_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/velocoach/internal/profile"
	"github.com/myrjola/velocoach/internal/ptr"
)

func validProfile() profile.UserProfile {
	return profile.UserProfile{
		Goal:               profile.GoalGranFondo,
		Level:              profile.LevelIntermediate,
		WeeklyHours:        9,
		AvailableDays:      []profile.Day{profile.Tuesday, profile.Thursday, profile.Saturday, profile.Sunday},
		Equipment:          []profile.Equipment{profile.SmartTrainer, profile.PowerMeter},
		Gender:             profile.GenderFemale,
		Age:                42,
		Weight:             61,
		FTP:                ptr.Ref(230),
		MaxHeartRate:       ptr.Ref(181),
		TrainingPreference: profile.PreferenceSplit,
	}
}

func TestUserProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *profile.UserProfile)
		wantErr error
	}{
		{name: "valid", mutate: func(_ *profile.UserProfile) {}, wantErr: nil},
		{name: "unknown goal", mutate: func(p *profile.UserProfile) { p.Goal = "Triathlon" }, wantErr: profile.ErrUnknownValue},
		{name: "unknown level", mutate: func(p *profile.UserProfile) { p.Level = "Pro" }, wantErr: profile.ErrUnknownValue},
		{name: "unknown day", mutate: func(p *profile.UserProfile) { p.AvailableDays = []profile.Day{"Mon"} }, wantErr: profile.ErrUnknownValue},
		{name: "unknown equipment", mutate: func(p *profile.UserProfile) {
			p.Equipment = []profile.Equipment{"Road Bike"}
		}, wantErr: profile.ErrUnknownValue},
		{name: "no days", mutate: func(p *profile.UserProfile) { p.AvailableDays = nil }, wantErr: profile.ErrInvalidProfile},
		{name: "hours above range", mutate: func(p *profile.UserProfile) { p.WeeklyHours = 15 }, wantErr: profile.ErrInvalidProfile},
		{name: "hours below range", mutate: func(p *profile.UserProfile) { p.WeeklyHours = 4 }, wantErr: profile.ErrInvalidProfile},
		{name: "ftp too low", mutate: func(p *profile.UserProfile) { p.FTP = ptr.Ref(39) }, wantErr: profile.ErrInvalidProfile},
		{name: "ftp optional", mutate: func(p *profile.UserProfile) { p.FTP = nil }, wantErr: nil},
		{name: "max heart rate required", mutate: func(p *profile.UserProfile) { p.MaxHeartRate = nil }, wantErr: profile.ErrInvalidProfile},
		{name: "max heart rate too high", mutate: func(p *profile.UserProfile) { p.MaxHeartRate = ptr.Ref(221) }, wantErr: profile.ErrInvalidProfile},
		{name: "age missing", mutate: func(p *profile.UserProfile) { p.Age = 0 }, wantErr: profile.ErrInvalidProfile},
		{name: "age below range", mutate: func(p *profile.UserProfile) { p.Age = profile.MinAge - 1 }, wantErr: profile.ErrInvalidProfile},
		{name: "age above range", mutate: func(p *profile.UserProfile) { p.Age = profile.MaxAge + 1 }, wantErr: profile.ErrInvalidProfile},
		{name: "youngest age", mutate: func(p *profile.UserProfile) { p.Age = profile.MinAge }, wantErr: nil},
		{name: "oldest age", mutate: func(p *profile.UserProfile) { p.Age = profile.MaxAge }, wantErr: nil},
		{name: "weight missing", mutate: func(p *profile.UserProfile) { p.Weight = 0 }, wantErr: profile.ErrInvalidProfile},
		{name: "preference optional", mutate: func(p *profile.UserProfile) { p.TrainingPreference = "" }, wantErr: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWeeklyHoursRange(t *testing.T) {
	if _, ok := profile.WeeklyHoursRange(0); ok {
		t.Error("expected no range for zero days")
	}
	if _, ok := profile.WeeklyHoursRange(8); ok {
		t.Error("expected no range for eight days")
	}

	if diff := cmp.Diff(profile.HoursRange{Min: 2, Max: 5}, mustRange(t, 1)); diff != "" {
		t.Errorf("1 day range mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(profile.HoursRange{Min: 10, Max: 25}, mustRange(t, 7)); diff != "" {
		t.Errorf("7 day range mismatch (-want +got):\n%s", diff)
	}

	prev := mustRange(t, 1)
	for days := 2; days <= 7; days++ {
		cur := mustRange(t, days)
		if cur.Min < prev.Min || cur.Max < prev.Max {
			t.Errorf("range for %d days %+v is not monotonic after %+v", days, cur, prev)
		}
		if cur.Min > cur.Max {
			t.Errorf("range for %d days is empty: %+v", days, cur)
		}
		prev = cur
	}
}

func mustRange(t *testing.T, days int) profile.HoursRange {
	t.Helper()
	r, ok := profile.WeeklyHoursRange(days)
	if !ok {
		t.Fatalf("expected range for %d days", days)
	}
	return r
}

func TestParse(t *testing.T) {
	if g, err := profile.ParseGoal("Kriterium"); err != nil || g != profile.GoalCriterium {
		t.Errorf("ParseGoal() = %q, %v", g, err)
	}
	if _, err := profile.ParseGoal("kriterium"); !errors.Is(err, profile.ErrUnknownValue) {
		t.Errorf("ParseGoal() is case sensitive, got %v", err)
	}
	if _, err := profile.ParseEquipment("Indoor Trainer"); !errors.Is(err, profile.ErrUnknownValue) {
		t.Errorf("ParseEquipment() error = %v, want ErrUnknownValue", err)
	}
	if d, err := profile.ParseDay("So"); err != nil || !d.IsWeekend() {
		t.Errorf("ParseDay() = %q, %v", d, err)
	}
}

func TestSortDays(t *testing.T) {
	got := profile.SortDays([]profile.Day{profile.Sunday, profile.Monday, profile.Sunday, profile.Wednesday})
	want := []profile.Day{profile.Monday, profile.Wednesday, profile.Sunday}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SortDays() mismatch (-want +got):\n%s", diff)
	}
}
