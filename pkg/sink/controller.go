package sink

import (
	"errors"
	"sync"
)

// ErrNoFormat 表示 Controller 还没有选中任何格式
var ErrNoFormat = errors.New("no export format selected")

// Controller 持有当前选中的格式，并把构建请求原样转发给它
// 它自己不做任何校验
type Controller struct {
	mu     sync.RWMutex
	active Format
}

// NewController 允许 f 为 nil，此时 BuildSink 返回 ErrNoFormat
func NewController(f Format) *Controller {
	return &Controller{active: f}
}

// Select 切换当前格式；nil 会被拒绝，当前选择保持不变
func (c *Controller) Select(f Format) error {
	if f == nil {
		return ErrNoFormat
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = f
	return nil
}

func (c *Controller) Active() Format {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func (c *Controller) BuildSink(req Request) (Outcome, error) {
	f := c.Active()
	if f == nil {
		return nil, ErrNoFormat
	}
	return f.BuildSink(req)
}

// DefaultExtension 没有选中格式时返回空字符串
func (c *Controller) DefaultExtension() string {
	f := c.Active()
	if f == nil {
		return ""
	}
	return f.DefaultExtension()
}
