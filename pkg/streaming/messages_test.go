package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Request
		wantErr bool
	}{
		{
			name: "full",
			raw:  `{"Identifier": 7, "Message": "custombradley.spawn", "Name": "WebRcon", "UserID": "76561198000000001"}`,
			want: Request{Identifier: 7, Message: "custombradley.spawn", Name: "WebRcon", UserID: "76561198000000001"},
		},
		{name: "blank message", raw: `{"Identifier": 1, "Message": "   "}`, wantErr: true},
		{name: "not json", raw: `custombradley.spawn`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponse_Encode(t *testing.T) {
	data, err := Response{Identifier: 3, Message: "Removed 2 custom Bradley(s)!", Type: TypeGeneric}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"Identifier": 3, "Message": "Removed 2 custom Bradley(s)!", "Type": "Generic"}`, string(data))
}
