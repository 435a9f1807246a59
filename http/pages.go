package http

import "healthrisk/disease"

// page 预测页面的展示文案
type page struct {
	Title    string
	Subtitle string
	Tip      string
}

var pages = map[disease.Disease]page{
	disease.Diabetes: {
		Title:    "Diabetes Prediction",
		Subtitle: "Predict diabetes risk based on health parameters",
		Tip:      "Enter accurate values for the best prediction. Hover over field labels for more information.",
	},
	disease.HeartDisease: {
		Title:    "Heart Disease Prediction",
		Subtitle: "Assess cardiovascular health risk",
		Tip:      "Medical test results provide the most accurate predictions. Consult your recent health checkup reports.",
	},
	disease.Parkinsons: {
		Title:    "Parkinson's Disease Prediction",
		Subtitle: "Detect Parkinson's disease using voice analysis parameters",
		Tip:      "These parameters are derived from voice frequency analysis. Typically obtained from specialized medical equipment.",
	},
	disease.LungCancer: {
		Title:    "Lung Cancer Prediction",
		Subtitle: "Assess lung cancer risk based on lifestyle and symptoms",
		Tip:      "Answer all questions accurately. This assessment is based on risk factors and symptoms.",
	},
	disease.Thyroid: {
		Title:    "Hypo-Thyroid Prediction",
		Subtitle: "Detect thyroid disorders based on hormone levels",
		Tip:      "These values come from blood tests. Check your recent thyroid function test results.",
	},
}

// pageFor 返回页面文案，未知疾病回退为标题化名称
func pageFor(d disease.Disease) page {
	if p, ok := pages[d]; ok {
		return p
	}
	return page{Title: d.Title() + " Prediction"}
}
