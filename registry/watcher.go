package registry

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"healthrisk/disease"
)

// Watcher 监听模型文件变化。模型不会被重新加载，
// 变化只会标记为 stale 并提示运维人员重启进程。
type Watcher struct {
	reg     *Registry
	fsw     *fsnotify.Watcher
	paths   map[string]disease.Disease
	logger  *zap.Logger
	done    chan struct{}
	changed chan disease.Disease
}

// Watch 启动模型文件监听，ctx 取消后停止
func (r *Registry) Watch(ctx context.Context) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		reg:     r,
		fsw:     fsw,
		paths:   make(map[string]disease.Disease),
		logger:  r.logger,
		done:    make(chan struct{}),
		changed: make(chan disease.Disease, len(disease.All())),
	}

	dirs := make(map[string]bool)
	for _, src := range r.Sources() {
		if src.Path == "" {
			continue
		}
		abs, err := filepath.Abs(src.Path)
		if err != nil {
			continue
		}
		w.paths[abs] = src.Disease
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go w.run(ctx)
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	d, ok := w.paths[abs]
	if !ok {
		return
	}
	if !w.reg.markStale(d) {
		return
	}
	w.logger.Warn("model file changed on disk; restart the process to pick it up",
		zap.String("disease", d.String()),
		zap.String("path", event.Name),
		zap.String("op", event.Op.String()))

	select {
	case w.changed <- d:
	default:
	}
}

// Changed 返回被标记为 stale 的疾病通知
func (w *Watcher) Changed() <-chan disease.Disease {
	return w.changed
}

// Wait 等待监听协程退出
func (w *Watcher) Wait() {
	<-w.done
}
