package irys

// ANS-104 data items signed with an Ethereum key
// Layout: sig type | signature | owner | target | anchor | tag count | tag bytes | tags | data
// Tags are Avro-encoded; the signed message is the SHA-384 deep hash of the item fields

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	signatureTypeEthereum = 3
	signatureLength       = 65
	ownerLength           = 65
	anchorLength          = 32
)

// Tag is a name/value pair attached to an upload.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DataItem is a signed, serialized upload.
type DataItem struct {
	raw       []byte
	signature []byte
}

func (d *DataItem) Bytes() []byte { return d.raw }

// ID is base64url(sha256(signature)), the id gateways serve the item under.
func (d *DataItem) ID() string {
	sum := sha256.Sum256(d.signature)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewDataItem builds and signs a data item. A random anchor keeps ids unique
// when the same content is uploaded more than once.
func NewDataItem(data []byte, tags []Tag, key *ecdsa.PrivateKey) (*DataItem, error) {
	anchor, err := randomAnchor()
	if err != nil {
		return nil, err
	}
	return newDataItem(data, tags, anchor, key)
}

func newDataItem(data []byte, tags []Tag, anchor []byte, key *ecdsa.PrivateKey) (*DataItem, error) {
	if key == nil {
		return nil, errors.New("signing key is required")
	}
	if anchor != nil && len(anchor) != anchorLength {
		return nil, fmt.Errorf("anchor must be %d bytes", anchorLength)
	}

	owner := crypto.FromECDSAPub(&key.PublicKey)
	if len(owner) != ownerLength {
		return nil, fmt.Errorf("unexpected owner length %d", len(owner))
	}

	rawTags, err := encodeTags(tags)
	if err != nil {
		return nil, err
	}

	message := deepHashList([][]byte{
		[]byte("dataitem"),
		[]byte("1"),
		[]byte(strconv.Itoa(signatureTypeEthereum)),
		owner,
		nil,
		anchor,
		rawTags,
		data,
	})

	signature, err := crypto.Sign(accounts.TextHash(message[:]), key)
	if err != nil {
		return nil, fmt.Errorf("sign data item: %w", err)
	}
	signature[64] += 27

	var buf bytes.Buffer
	buf.Grow(2 + signatureLength + ownerLength + 2 + anchorLength + 16 + len(rawTags) + len(data))

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], signatureTypeEthereum)
	buf.Write(u16[:])
	buf.Write(signature)
	buf.Write(owner)
	buf.WriteByte(0) // no target
	if anchor != nil {
		buf.WriteByte(1)
		buf.Write(anchor)
	} else {
		buf.WriteByte(0)
	}

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(len(tags)))
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], uint64(len(rawTags)))
	buf.Write(u64[:])
	buf.Write(rawTags)
	buf.Write(data)

	return &DataItem{raw: buf.Bytes(), signature: signature}, nil
}

func randomAnchor() ([]byte, error) {
	b := make([]byte, anchorLength)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("anchor: %w", err)
	}
	return []byte(base64.StdEncoding.EncodeToString(b)[:anchorLength]), nil
}

// encodeTags writes tags as an Avro array of {name: bytes, value: bytes}.
func encodeTags(tags []Tag) ([]byte, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	writeAvroLong(&buf, int64(len(tags)))
	for _, tag := range tags {
		if tag.Name == "" || tag.Value == "" {
			return nil, fmt.Errorf("tag name and value must not be empty (%q=%q)", tag.Name, tag.Value)
		}
		writeAvroBytes(&buf, []byte(tag.Name))
		writeAvroBytes(&buf, []byte(tag.Value))
	}
	writeAvroLong(&buf, 0)
	return buf.Bytes(), nil
}

func writeAvroLong(buf *bytes.Buffer, n int64) {
	z := uint64((n << 1) ^ (n >> 63))
	for z >= 0x80 {
		buf.WriteByte(byte(z) | 0x80)
		z >>= 7
	}
	buf.WriteByte(byte(z))
}

func writeAvroBytes(buf *bytes.Buffer, b []byte) {
	writeAvroLong(buf, int64(len(b)))
	buf.Write(b)
}

func deepHashBlob(data []byte) [48]byte {
	tagHash := sha512.Sum384([]byte("blob" + strconv.Itoa(len(data))))
	dataHash := sha512.Sum384(data)
	return sha512.Sum384(append(tagHash[:], dataHash[:]...))
}

func deepHashList(items [][]byte) [48]byte {
	acc := sha512.Sum384([]byte("list" + strconv.Itoa(len(items))))
	for _, item := range items {
		h := deepHashBlob(item)
		acc = sha512.Sum384(append(acc[:], h[:]...))
	}
	return acc
}
