package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeServiceError struct {
	status int
	code   string
}

func (f fakeServiceError) Error() string           { return fmt.Sprintf("%d %s", f.status, f.code) }
func (f fakeServiceError) GetHTTPStatusCode() int  { return f.status }
func (f fakeServiceError) GetMessage() string      { return f.code }
func (f fakeServiceError) GetCode() string         { return f.code }
func (f fakeServiceError) GetOpcRequestID() string { return "req-1" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryUnknown},
		{"plain", fmt.Errorf("boom"), CategoryUnknown},
		{"transport", Transport("ListInstances", fmt.Errorf("dial tcp")), CategoryTransport},
		{"wrapped transport", fmt.Errorf("stage: %w", Transport("ListVcns", fmt.Errorf("eof"))), CategoryTransport},
		{"parse", &ParseError{Input: "string", Err: fmt.Errorf("bad")}, CategoryMalformed},
		{"missing key", Missing("ocid1.x", "id"), CategoryMalformed},
		{"graph", GraphWrite("merge nodes", fmt.Errorf("constraint")), CategoryGraphWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestConstructorsPassNilThrough(t *testing.T) {
	assert.NoError(t, Transport("op", nil))
	assert.NoError(t, GraphWrite("op", nil))
}

func TestServicePredicates(t *testing.T) {
	notFound := Transport("GetBucket", fakeServiceError{status: http.StatusNotFound, code: "NotAuthorizedOrNotFound"})
	throttled := fmt.Errorf("page 2: %w", fakeServiceError{status: http.StatusTooManyRequests, code: "TooManyRequests"})

	assert.True(t, IsNotAuthorizedOrNotFound(notFound))
	assert.False(t, IsThrottled(notFound))
	assert.True(t, IsThrottled(throttled))
	assert.False(t, IsNotAuthorizedOrNotFound(throttled))
	assert.False(t, IsThrottled(fmt.Errorf("plain")))
	assert.Equal(t, "req-1", RequestID(notFound))
	assert.Equal(t, "", RequestID(fmt.Errorf("plain")))
}

func TestMalformedErrorMessage(t *testing.T) {
	assert.Equal(t, `malformed record ocid1.vcn.oc1..a: field "vcn-id" is missing`, Missing("ocid1.vcn.oc1..a", "vcn-id").Error())
	assert.Equal(t, `malformed record: field "id" has unexpected type int`, WrongType("", "id", 3).Error())
}
