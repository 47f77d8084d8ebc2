// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package busrpcerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewf(t *testing.T) {
	err := Newf(CodeCallTimeout, "service %s took too long", "echo")
	require.NotNil(t, err)
	assert.Equal(t, CodeCallTimeout, err.Code())
	assert.Equal(t, "service echo took too long", err.Message())
	assert.Equal(t, "code:call-timeout message:service echo took too long", err.Error())
}

func TestNewfCodeOKReturnsNil(t *testing.T) {
	assert.Nil(t, Newf(CodeOK, "nothing wrong"))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeTransport, cause)
	require.NotNil(t, err)
	assert.Equal(t, CodeTransport, err.Code())
	assert.Equal(t, "connection refused", err.Message())
	assert.ErrorIs(t, err, cause)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeTransport, nil))
	assert.Nil(t, Wrap(CodeOK, errors.New("ok is not an error")))
}

func TestFromError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, FromError(nil))
		assert.Equal(t, CodeOK, FromError(nil).Code())
	})

	t.Run("status", func(t *testing.T) {
		st := Newf(CodeNoAvailableServer, "nobody home")
		assert.Equal(t, st, FromError(st))
	})

	t.Run("wrapped status", func(t *testing.T) {
		st := Newf(CodeNoAvailableServer, "nobody home")
		wrapped := fmt.Errorf("dispatch failed: %w", st)
		assert.Equal(t, st, FromError(wrapped))
	})

	t.Run("foreign error", func(t *testing.T) {
		cause := errors.New("some library error")
		st := FromError(cause)
		require.NotNil(t, st)
		assert.Equal(t, CodeUnknown, st.Code())
		assert.ErrorIs(t, st, cause)
	})
}

func TestConstructorsAndPredicates(t *testing.T) {
	tests := []struct {
		err       error
		code      Code
		predicate func(error) bool
	}{
		{CallTimeoutErrorf("t"), CodeCallTimeout, IsCallTimeout},
		{NoAvailableServerErrorf("t"), CodeNoAvailableServer, IsNoAvailableServer},
		{TransportErrorf("t"), CodeTransport, IsTransport},
		{ClientClosedErrorf("t"), CodeClientClosed, IsClientClosed},
		{InvalidArgumentErrorf("t"), CodeInvalidArgument, IsInvalidArgument},
		{UnknownErrorf("t"), CodeUnknown, IsUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.True(t, tt.predicate(tt.err))
		})
	}
}

func TestPredicatesRejectOtherCodes(t *testing.T) {
	err := TransportErrorf("broker gone")
	assert.False(t, IsCallTimeout(err))
	assert.False(t, IsNoAvailableServer(err))
	assert.False(t, IsClientClosed(err))
	assert.False(t, IsUnknown(err))
}

func TestErrorCodeOfForeignError(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCode(errors.New("not ours")))
	assert.Equal(t, CodeOK, ErrorCode(nil))
}

func TestCodeMarshalText(t *testing.T) {
	text, err := CodeCallTimeout.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "call-timeout", string(text))

	var code Code
	require.NoError(t, code.UnmarshalText([]byte("no-available-server")))
	assert.Equal(t, CodeNoAvailableServer, code)

	assert.Error(t, code.UnmarshalText([]byte("not-a-code")))
}
