package node

import (
	"errors"
	"fmt"
	"net"
	"reflect"
)

// MembershipKey is a multicast group membership.
type MembershipKey interface {
	Group() net.IP
	Interface() *net.Interface
	// Source is nil for any-source memberships.
	Source() net.IP
	Drop() error
}

// Join always fails, multicast membership is not supported on UDPChannel.
func (c *UDPChannel) Join(group net.IP, iface *net.Interface) (MembershipKey, error) {
	return nil, fmt.Errorf("multicast join: %w", errors.ErrUnsupported)
}

// JoinSource always fails, see Join.
func (c *UDPChannel) JoinSource(group net.IP, iface *net.Interface, source net.IP) (MembershipKey, error) {
	return nil, fmt.Errorf("multicast join: %w", errors.ErrUnsupported)
}

// Option always fails with *UnsupportedOptionError.
func (c *UDPChannel) Option(name string) (any, error) {
	return nil, &UnsupportedOptionError{Name: name}
}

// SetOption always fails with *UnsupportedOptionError.
func (c *UDPChannel) SetOption(name string, value any) error {
	return &UnsupportedOptionError{Name: name}
}

// Options lists the supported options and their value types. There are none.
func (c *UDPChannel) Options() map[string]reflect.Type {
	return map[string]reflect.Type{}
}
