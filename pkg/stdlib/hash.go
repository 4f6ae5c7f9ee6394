package stdlib

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerHash installs hash_checksum/hash_hmac, returning hex-encoded
// digests (LexFlow has no bytes value kind, unlike the teacher's GCW
// stdlib which returns a dedicated bytes type).
func registerHash(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("hash_checksum", 2, 2, "io", func(_ context.Context, args []types.Value) (types.Value, error) {
		h, err := newHash(args[1].String())
		if err != nil {
			return types.Null, err
		}
		h.Write([]byte(args[0].String()))
		return types.NewString(hex.EncodeToString(h.Sum(nil))), nil
	})
	r.RegisterCategorized("hash_hmac", 3, 3, "io", func(_ context.Context, args []types.Value) (types.Value, error) {
		hashFunc, err := hashFactory(args[2].String())
		if err != nil {
			return types.Null, err
		}
		mac := hmac.New(hashFunc, []byte(args[1].String()))
		mac.Write([]byte(args[0].String()))
		return types.NewString(hex.EncodeToString(mac.Sum(nil))), nil
	})
}

func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "SHA256":
		return sha256.New(), nil
	case "SHA384":
		return sha512.New384(), nil
	case "SHA512":
		return sha512.New(), nil
	case "MD5":
		return md5.New(), nil
	case "SHA1":
		return sha1.New(), nil
	default:
		return nil, types.NewValueError("unsupported hash algorithm: " + algorithm)
	}
}

func hashFactory(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case "SHA256":
		return sha256.New, nil
	case "SHA384":
		return sha512.New384, nil
	case "SHA512":
		return sha512.New, nil
	case "MD5":
		return md5.New, nil
	case "SHA1":
		return sha1.New, nil
	default:
		return nil, types.NewValueError("unsupported HMAC algorithm: " + algorithm)
	}
}
