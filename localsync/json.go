package localsync

import "encoding/json"

func jsonParser[T any](plaintext []byte) (T, error) {
	var v T
	err := json.Unmarshal(plaintext, &v)
	return v, err
}

func jsonSerializer[T any](value T) ([]byte, error) {
	return json.Marshal(value)
}
