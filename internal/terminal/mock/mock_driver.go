// Package mock provides a function-field Driver for tests. Each hook, when
// unset, falls back to a benign default so tests only wire what they assert.
package mock

import (
	"github.com/devlas/sumup-bridge/internal/terminal"
)

// Driver is a mock implementation of terminal.Driver.
type Driver struct {
	InitFunc               func() error
	OpenLoginFunc          func(req terminal.LoginRequest, requestCode int) error
	OpenCheckoutFunc       func(p terminal.Payment, requestCode int) error
	OpenCardReaderFunc     func(requestCode int) error
	PrepareFunc            func() error
	LogoutFunc             func() error
	IsLoggedInFunc         func() bool
	TipOnReaderSupport     bool
	LogoutCalls            int
	PrepareCalls           int
	LaunchedLogins         []terminal.LoginRequest
	LaunchedPayments       []terminal.Payment
	LaunchedReaderRequests []int
}

// NewDriver creates a mock driver with all defaults.
func NewDriver() *Driver {
	return &Driver{}
}

func (d *Driver) Init() error {
	if d.InitFunc != nil {
		return d.InitFunc()
	}
	return nil
}

func (d *Driver) OpenLogin(req terminal.LoginRequest, requestCode int) error {
	d.LaunchedLogins = append(d.LaunchedLogins, req)
	if d.OpenLoginFunc != nil {
		return d.OpenLoginFunc(req, requestCode)
	}
	return nil
}

func (d *Driver) OpenCheckout(p terminal.Payment, requestCode int) error {
	d.LaunchedPayments = append(d.LaunchedPayments, p)
	if d.OpenCheckoutFunc != nil {
		return d.OpenCheckoutFunc(p, requestCode)
	}
	return nil
}

func (d *Driver) OpenCardReaderPage(requestCode int) error {
	d.LaunchedReaderRequests = append(d.LaunchedReaderRequests, requestCode)
	if d.OpenCardReaderFunc != nil {
		return d.OpenCardReaderFunc(requestCode)
	}
	return nil
}

func (d *Driver) PrepareForCheckout() error {
	d.PrepareCalls++
	if d.PrepareFunc != nil {
		return d.PrepareFunc()
	}
	return nil
}

func (d *Driver) Logout() error {
	d.LogoutCalls++
	if d.LogoutFunc != nil {
		return d.LogoutFunc()
	}
	return nil
}

func (d *Driver) IsLoggedIn() bool {
	if d.IsLoggedInFunc != nil {
		return d.IsLoggedInFunc()
	}
	return false
}

func (d *Driver) TipOnReaderSupported() bool {
	return d.TipOnReaderSupport
}
