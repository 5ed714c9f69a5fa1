// Package mocks provides test doubles for the surface interfaces.
package mocks

import (
	surface "github.com/smartmap-fr/smartmap/internal/surface"
	mock "github.com/stretchr/testify/mock"
)

// MockCamera is a mock type for the Camera interface.
type MockCamera struct {
	mock.Mock
}

// Zoom provides a mock function with given fields:
func (_m *MockCamera) Zoom() float64 {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Zoom")
	}

	var r0 float64
	if rf, ok := ret.Get(0).(func() float64); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(float64)
	}

	return r0
}

// EaseTo provides a mock function with given fields: opts
func (_m *MockCamera) EaseTo(opts surface.EaseOptions) {
	_m.Called(opts)
}

// DisableDoubleClickZoom provides a mock function with given fields:
func (_m *MockCamera) DisableDoubleClickZoom() {
	_m.Called()
}

// NewMockCamera creates a new instance of MockCamera.
func NewMockCamera(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCamera {
	mock := &MockCamera{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
