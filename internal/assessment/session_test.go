package assessment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormNavigation(t *testing.T) {
	f := NewForm()
	assert.Equal(t, 1, f.Step)
	assert.Equal(t, "FunctionalAssessment", f.FieldName())

	f.Back()
	assert.Equal(t, 1, f.Step)

	f.SetCurrent("4.5")
	for i := 0; i < 10; i++ {
		f.Next()
	}
	assert.Equal(t, StepCount, f.Step)
	assert.True(t, f.IsFinal())
	assert.Equal(t, "BehavioralProblems", f.FieldName())
	assert.Equal(t, "4.5", f.Data.Step1)
}

func TestFormAnalyzeDisabled(t *testing.T) {
	f := NewForm()
	assert.False(t, f.AnalyzeDisabled(), "only the last step can be disabled")

	f.Step = StepCount
	assert.True(t, f.AnalyzeDisabled())

	f.SetCurrent("1")
	assert.False(t, f.AnalyzeDisabled())
}

func TestUploadReferenceDescribe(t *testing.T) {
	ref := UploadReference{Name: "scan.dcm", Size: 3 * 1024 * 1024 / 2}
	assert.Equal(t, "scan.dcm (1.50 MB)", ref.Describe())
}

func TestStoreGetOrCreate(t *testing.T) {
	var built []string
	st := NewStore(func(id string) *Flow {
		built = append(built, id)
		return NewFlow(fixed(PredictionResponse{}))
	})

	s, created := st.GetOrCreate("")
	require.True(t, created)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, []string{s.ID}, built)
	assert.Equal(t, 1, s.Form().Step)

	again, created := st.GetOrCreate(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	other, created := st.GetOrCreate("unknown-id")
	assert.True(t, created)
	assert.NotEqual(t, "unknown-id", other.ID)
	assert.Equal(t, 2, st.Len())
}

func TestSessionFormAndUpload(t *testing.T) {
	st := NewStore(func(string) *Flow { return NewFlow(fixed(PredictionResponse{})) })
	s, _ := st.GetOrCreate("")

	form := s.UpdateForm(func(f *Form) {
		f.SetCurrent("3")
		f.Next()
	})
	assert.Equal(t, 2, form.Step)
	assert.Equal(t, "3", s.Form().Data.Step1)

	assert.Nil(t, s.Upload())
	s.SetUpload(UploadReference{Name: "a.png", Status: UploadAccepted})
	require.NotNil(t, s.Upload())
	assert.Equal(t, UploadAccepted, s.Upload().Status)
}

func TestStoreSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st := NewStore(func(string) *Flow { return NewFlow(fixed(PredictionResponse{})) })
	st.now = func() time.Time { return now }

	old, _ := st.GetOrCreate("")
	now = now.Add(2 * time.Hour)
	fresh, _ := st.GetOrCreate("")

	assert.Equal(t, 1, st.Sweep(time.Hour))
	_, ok := st.Get(old.ID)
	assert.False(t, ok)
	_, ok = st.Get(fresh.ID)
	assert.True(t, ok)
}
