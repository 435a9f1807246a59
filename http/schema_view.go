package http

import "healthrisk/disease"

// choiceView 分类字段的一个取值
type choiceView struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

type fieldView struct {
	Name     string       `json:"name"`
	Position int          `json:"position"`
	Kind     disease.Kind `json:"kind"`
	Min      *float64     `json:"min,omitempty"`
	Max      *float64     `json:"max,omitempty"`
	Default  float64      `json:"default"`
	Choices  []choiceView `json:"choices,omitempty"`
}

type schemaView struct {
	Disease     disease.Disease `json:"disease"`
	DisplayName string          `json:"display_name"`
	Title       string          `json:"title"`
	Length      int             `json:"length"`
	Fields      []fieldView     `json:"fields"`
}

var (
	sexLabels   = []string{"Female", "Male"}
	yesNoLabels = []string{"No", "Yes"}
)

// choiceLabels 与表单下拉框一致的取值标签
var choiceLabels = map[string][]string{
	"sex":               sexLabels,
	"gender":            sexLabels,
	"chest_pain_type":   {"Typical Angina", "Atypical Angina", "Non-anginal Pain", "Asymptomatic"},
	"resting_ecg":       {"Normal", "ST-T Wave Abnormality", "Left Ventricular Hypertrophy"},
	"st_slope":          {"Upsloping", "Flat", "Downsloping"},
	"num_major_vessels": {"0", "1", "2", "3"},
	"thalassemia":       {"Normal", "Fixed Defect", "Reversible Defect"},
}

// schemaFor 构建疾病特征布局的只读视图
func schemaFor(d disease.Disease) schemaView {
	schema := d.Schema()
	view := schemaView{
		Disease:     d,
		DisplayName: d.Title(),
		Title:       pageFor(d).Title,
		Length:      schema.Len(),
		Fields:      make([]fieldView, 0, schema.Len()),
	}
	for i, f := range schema.Fields {
		fv := fieldView{
			Name:     f.Name,
			Position: i,
			Kind:     f.Kind,
			Default:  f.Default,
		}
		if f.HasMin {
			lo := f.Min
			fv.Min = &lo
		}
		if f.HasMax {
			hi := f.Max
			fv.Max = &hi
		}
		if f.Kind == disease.Categorical {
			fv.Choices = choicesFor(f)
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

func choicesFor(f disease.Field) []choiceView {
	labels, ok := choiceLabels[f.Name]
	if !ok && f.Choices == 2 {
		labels = yesNoLabels
	}
	out := make([]choiceView, f.Choices)
	for code := range out {
		out[code].Code = code
		if code < len(labels) {
			out[code].Label = labels[code]
		}
	}
	return out
}
