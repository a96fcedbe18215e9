package changes_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/changes"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

func TestTransactionDecodesEnvelopes(t *testing.T) {
	body := `{
		"id": "t1",
		"changes": [
			{"kind": "ElementAddVersion", "payload": {"elementId": "` + home + `", "version": 2}},
			{"kind": "ElementContentsChange", "payload": {"elementId": "` + home + `", "version": 2, "language": "en", "path": ["title"], "value": "Hi"}},
			{"kind": "ElementAttachChildElement", "payload": {"parentId": "` + home + `", "childId": "` + id(2) + `", "fromVersion": 1}}
		]
	}`

	var tx changes.Transaction
	require.NoError(t, json.Unmarshal([]byte(body), &tx))
	require.Len(t, tx.Changes, 3)
	assert.Equal(t, []string{"ElementAddVersion", "ElementContentsChange", "ElementAttachChildElement"}, tx.Changes.Kinds())

	cc, ok := tx.Changes[1].(*changes.ElementContentsChange)
	require.True(t, ok)
	assert.Equal(t, element.ContentPath{"title"}, cc.Path)
	assert.Equal(t, "Hi", cc.Value)

	attach := tx.Changes[2].(*changes.ElementAttachChildElement)
	assert.Equal(t, -1, attach.Position)
	assert.Equal(t, home, attach.Subject())
}

func TestTransactionEncodesEnvelopes(t *testing.T) {
	tx := changes.Transaction{ID: "t1", Changes: changes.List{
		&changes.ElementStateChange{ElementID: home, Version: 1, State: element.StatePublished},
	}}
	data, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t1","changes":[{"kind":"ElementStateChange","payload":{"elementId":"`+home+`","version":1,"state":"published"}}]}`, string(data))
}

func TestUnknownKindIsRejected(t *testing.T) {
	var tx changes.Transaction
	err := json.Unmarshal([]byte(`{"changes":[{"kind":"ElementExplode","payload":{}}]}`), &tx)
	assert.ErrorIs(t, err, changes.ErrUnknownKind)

	err = json.Unmarshal([]byte(`{"changes":[{"kind":"ElementSetParent"}]}`), &tx)
	assert.Error(t, err)
}
