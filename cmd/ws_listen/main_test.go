package main

import (
	"bytes"
	"testing"
)

func TestPrinter(t *testing.T) {
	tests := []struct {
		name string
		p    printer
		msg  string
		want string
	}{
		{
			name: "style",
			msg:  `{"type":"style_changed","ts":"x","data":{"style":"rotate(90deg)","target":"video"}}`,
			want: "[STYLE_CHANGED] video rotate(90deg)\n",
		},
		{
			name: "enabled",
			msg:  `{"type":"enabled_changed","data":{"enabled":false,"target":"video"}}`,
			want: "[ENABLED_CHANGED] OFF target=video\n",
		},
		{
			name: "rejected",
			msg:  `{"type":"options_rejected","data":{"reason":"bad_number","field":"transform_settings.rotate_increment","message":"not a number"}}`,
			want: "[OPTIONS_REJECTED] bad_number transform_settings.rotate_increment: not a number\n",
		},
		{
			name: "filtered out",
			p:    printer{only: parseTypes("page_changed")},
			msg:  `{"type":"style_changed","data":{}}`,
			want: "",
		},
		{
			name: "not json",
			msg:  `hello`,
			want: "[TEXT] hello\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.p.w = &buf
			tt.p.print([]byte(tt.msg))
			if buf.String() != tt.want {
				t.Fatalf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
