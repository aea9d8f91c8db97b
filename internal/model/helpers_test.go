package model_test

import "encoding/json"

func jsonUnmarshal(s string, dst any) error {
	return json.Unmarshal([]byte(s), dst)
}
