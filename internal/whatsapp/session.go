package whatsapp

import (
	"fmt"
	"sync"
)

// SessionState WhatsApp 会话状态
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StatePairing
	StateConnected
	StateReconnecting
	StateLoggedOut
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StatePairing:
		return "pairing"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateLoggedOut:
		return "logged_out"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// 合法迁移表；closed 为终态，logged_out 只能重新配对或关闭
var sessionTransitions = map[SessionState][]SessionState{
	StateDisconnected: {StateConnecting, StateClosed},
	StateConnecting:   {StatePairing, StateConnected, StateReconnecting, StateLoggedOut, StateDisconnected, StateClosed},
	StatePairing:      {StateConnected, StateDisconnected, StateClosed},
	StateConnected:    {StateReconnecting, StateLoggedOut, StateDisconnected, StateClosed},
	StateReconnecting: {StateConnecting, StateConnected, StateLoggedOut, StateDisconnected, StateClosed},
	StateLoggedOut:    {StateConnecting, StateClosed},
	StateClosed:       {},
}

// Session 线程安全的会话状态机
type Session struct {
	mu        sync.Mutex
	state     SessionState
	listeners []func(from, to SessionState)
}

// NewSession 以 disconnected 状态创建会话
func NewSession() *Session {
	return &Session{state: StateDisconnected}
}

// State 当前状态
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnTransition 注册状态变化回调，回调在锁外执行
func (s *Session) OnTransition(fn func(from, to SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Transition 迁移到 to；非法迁移返回错误且状态不变，迁移到当前状态是空操作
func (s *Session) Transition(to SessionState) error {
	s.mu.Lock()
	from := s.state
	if from == to {
		s.mu.Unlock()
		return nil
	}
	if !canTransition(from, to) {
		s.mu.Unlock()
		return fmt.Errorf("invalid session transition %s -> %s", from, to)
	}
	s.state = to
	listeners := append([]func(from, to SessionState){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(from, to)
	}
	return nil
}

// IsClosed 是否已进入终态
func (s *Session) IsClosed() bool {
	return s.State() == StateClosed
}

// Healthy 已连接，或首次启动正在等待扫码
func (s *Session) Healthy() bool {
	switch s.State() {
	case StateConnected, StatePairing:
		return true
	}
	return false
}

func canTransition(from, to SessionState) bool {
	for _, allowed := range sessionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
