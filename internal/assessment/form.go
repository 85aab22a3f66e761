package assessment

// Form tracks the guided step-by-step entry of the clinical indicators.
type Form struct {
	Data StepData
	Step int
}

func NewForm() *Form {
	return &Form{Step: 1}
}

func (f *Form) Next() {
	if f.Step < StepCount {
		f.Step++
	}
}

func (f *Form) Back() {
	if f.Step > 1 {
		f.Step--
	}
}

// SetCurrent stores value for the step currently shown.
func (f *Form) SetCurrent(value string) {
	f.Data.Set(f.Step, value)
}

func (f *Form) Current() string {
	return f.Data.Get(f.Step)
}

func (f *Form) FieldName() string {
	return FieldNames[f.Step-1]
}

func (f *Form) IsFinal() bool {
	return f.Step == StepCount
}

// AnalyzeDisabled is true on the last step while every field is blank.
func (f *Form) AnalyzeDisabled() bool {
	return f.IsFinal() && f.Data.AllBlank()
}
