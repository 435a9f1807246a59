// Package registry 负责在进程启动时一次性加载各疾病的预训练分类器，
// 并在进程生命周期内以只读方式提供给调用方。
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"healthrisk/disease"
	"healthrisk/ml"
)

// Source 单个疾病模型的存储位置
type Source struct {
	Disease disease.Disease
	Path    string
	Type    string
}

// Loader 反序列化一个模型文件
type Loader func(src Source) (ml.Classifier, error)

// FileLoader 按模型类型从磁盘加载
func FileLoader(src Source) (ml.Classifier, error) {
	return ml.LoadModel(src.Type, src.Path)
}

// LoadError 单个疾病模型加载失败
type LoadError struct {
	Disease disease.Disease
	Path    string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s model from %s: %v", e.Disease, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadRecord 模型加载状态
type LoadRecord struct {
	Disease  disease.Disease `json:"disease"`
	Path     string          `json:"path"`
	Type     string          `json:"type"`
	Checksum string          `json:"checksum,omitempty"`
	Loaded   bool            `json:"loaded"`
	Error    string          `json:"error,omitempty"`
	Stale    bool            `json:"stale"`
	LoadedAt time.Time       `json:"loaded_at"`
}

// Options 注册表配置
type Options struct {
	Sources []Source
	Loader  Loader
	// Isolated 为 true 时单个模型失败不影响其它模型；
	// 默认严格模式下任何失败都会使整个加载失败。
	Isolated bool
	Logger   *zap.Logger
}

// Registry 模型注册表。Load 只执行一次，之后 Get 复用缓存的映射。
type Registry struct {
	sources  map[disease.Disease]Source
	loader   Loader
	isolated bool
	logger   *zap.Logger

	once   sync.Once
	loaded atomic.Bool
	models map[disease.Disease]ml.Classifier
	err    error

	mu      sync.RWMutex
	records map[disease.Disease]*LoadRecord
}

// New 创建注册表，不触发加载
func New(opts Options) *Registry {
	loader := opts.Loader
	if loader == nil {
		loader = FileLoader
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sources := make(map[disease.Disease]Source, len(opts.Sources))
	for _, src := range opts.Sources {
		sources[src.Disease] = src
	}
	return &Registry{
		sources:  sources,
		loader:   loader,
		isolated: opts.Isolated,
		logger:   logger,
		records:  make(map[disease.Disease]*LoadRecord),
	}
}

// Load 加载全部模型。重复调用返回同一批分类器，不会重新反序列化。
func (r *Registry) Load() (map[disease.Disease]ml.Classifier, error) {
	r.once.Do(r.load)
	out := make(map[disease.Disease]ml.Classifier, len(r.models))
	for d, m := range r.models {
		out[d] = m
	}
	return out, r.err
}

func (r *Registry) load() {
	models := make(map[disease.Disease]ml.Classifier, len(disease.All()))
	records := make(map[disease.Disease]*LoadRecord, len(disease.All()))
	var errs error

	for _, d := range disease.All() {
		src, ok := r.sources[d]
		if !ok {
			src = Source{Disease: d}
		}
		record := &LoadRecord{Disease: d, Path: src.Path, Type: src.Type, LoadedAt: time.Now().UTC()}

		model, err := r.loadOne(src, ok)
		if err != nil {
			loadErr := &LoadError{Disease: d, Path: src.Path, Err: err}
			record.Error = loadErr.Error()
			errs = multierr.Append(errs, loadErr)
			r.logger.Error("model load failed",
				zap.String("disease", d.String()),
				zap.String("path", src.Path),
				zap.Error(err))
		} else {
			models[d] = model
			record.Loaded = true
			record.Checksum = checksumFile(src.Path)
			r.logger.Info("model loaded",
				zap.String("disease", d.String()),
				zap.String("path", src.Path),
				zap.String("checksum", record.Checksum))
		}
		records[d] = record
	}

	if errs != nil && !r.isolated {
		for d, record := range records {
			if record.Loaded {
				record.Loaded = false
				record.Error = "registry load aborted: another model failed to load"
			}
			delete(models, d)
		}
	}

	r.mu.Lock()
	r.records = records
	r.mu.Unlock()

	r.models = models
	r.err = errs
	r.loaded.Store(true)
}

func (r *Registry) loadOne(src Source, configured bool) (model ml.Classifier, err error) {
	if !configured || src.Path == "" {
		return nil, fmt.Errorf("no model source configured")
	}
	defer func() {
		if p := recover(); p != nil {
			model, err = nil, fmt.Errorf("loader panic: %v", p)
		}
	}()
	model, err = r.loader(src)
	if err == nil && model == nil {
		err = fmt.Errorf("loader returned no model")
	}
	return model, err
}

// Get 返回已加载的分类器。Load 之前或加载失败时返回 false。
func (r *Registry) Get(d disease.Disease) (ml.Classifier, bool) {
	if !r.loaded.Load() {
		return nil, false
	}
	m, ok := r.models[d]
	return m, ok
}

// Loaded 报告 Load 是否已执行
func (r *Registry) Loaded() bool {
	return r.loaded.Load()
}

// Err 返回加载错误
func (r *Registry) Err() error {
	if !r.loaded.Load() {
		return nil
	}
	return r.err
}

// Status 返回各疾病模型的加载状态，按页面顺序排列
func (r *Registry) Status() []LoadRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]LoadRecord, 0, len(disease.All()))
	for _, d := range disease.All() {
		if record, ok := r.records[d]; ok {
			out = append(out, *record)
			continue
		}
		src := r.sources[d]
		out = append(out, LoadRecord{Disease: d, Path: src.Path, Type: src.Type})
	}
	return out
}

// Sources 返回配置的模型来源
func (r *Registry) Sources() []Source {
	out := make([]Source, 0, len(r.sources))
	for _, d := range disease.All() {
		if src, ok := r.sources[d]; ok {
			out = append(out, src)
		}
	}
	return out
}

// markStale 标记模型文件在加载后发生了变化
func (r *Registry) markStale(d disease.Disease) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[d]
	if !ok || record.Stale {
		return false
	}
	record.Stale = true
	return true
}

func checksumFile(path string) string {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return ""
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
