package directory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerce(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		expectWrap  bool
		expectMatch error
	}{
		{name: "nil stays nil", err: nil},
		{name: "domain error passes through", err: ErrUserNotFound, expectMatch: ErrUserNotFound},
		{
			name:        "wrapped domain error passes through",
			err:         errors.Join(errors.New("context"), ErrDuplicateGroup),
			expectMatch: ErrDuplicateGroup,
		},
		{name: "infrastructure error is wrapped", err: errors.New("connection refused"), expectWrap: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := coerce("test op", "dir-1", tc.err)

			if tc.err == nil {
				assert.NoError(t, err)

				return
			}

			var unavailable *UnavailableError

			if tc.expectWrap {
				assert.ErrorAs(t, err, &unavailable)
				assert.Equal(t, "test op", unavailable.Op)
				assert.Equal(t, "dir-1", unavailable.DirectoryID)
				assert.ErrorIs(t, err, tc.err)

				return
			}

			assert.ErrorIs(t, err, tc.expectMatch)
			assert.False(t, errors.As(err, &unavailable), "domain errors must not be wrapped")
		})
	}
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(ErrAuthenticationFailed))
	assert.True(t, IsDomainError(ErrInvalidConfiguration))
	assert.False(t, IsDomainError(errors.New("dial tcp: timeout")))
	assert.False(t, IsDomainError(&UnavailableError{Op: "op", DirectoryID: "dir", Err: errors.New("down")}))
}

func TestUnavailableErrorMessage(t *testing.T) {
	err := &UnavailableError{Op: "authenticate", DirectoryID: "dir-1", Err: errors.New("connection refused")}
	assert.Equal(t, "directory dir-1: authenticate: unavailable: connection refused", err.Error())

	bare := &UnavailableError{Op: "authenticate", DirectoryID: "dir-1"}
	assert.Equal(t, "directory dir-1: authenticate: unavailable", bare.Error())
}
