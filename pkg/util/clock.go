package util

import "time"

// Clock 时间来源，服务层通过注入它来保证测试可控
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 真实系统时间
func SystemClock() Clock { return systemClock{} }

// FixedClock 测试用，返回固定时间，可手动推进
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }
