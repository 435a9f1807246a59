package registry

import (
	"path/filepath"

	"healthrisk/disease"
	"healthrisk/ml"
)

// DefaultFiles 各疾病模型的默认文件名
var DefaultFiles = map[disease.Disease]string{
	disease.Diabetes:     "diabetes_model.json",
	disease.HeartDisease: "heart_disease_model.json",
	disease.Parkinsons:   "parkinsons_model.json",
	disease.LungCancer:   "lungs_disease_model.json",
	disease.Thyroid:      "Thyroid_model.json",
}

// SourcesFromDir 使用默认文件名在 dir 下构造全部模型来源
func SourcesFromDir(dir string) []Source {
	sources := make([]Source, 0, len(DefaultFiles))
	for _, d := range disease.All() {
		sources = append(sources, Source{
			Disease: d,
			Path:    filepath.Join(dir, DefaultFiles[d]),
			Type:    ml.TypeDecisionTree,
		})
	}
	return sources
}
