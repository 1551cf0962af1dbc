package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testDBName    = "db"
	testStoreName = "store"
)

// newTestTransaction opens an ephemeral store seeded with one database, one
// object store, and one data row, and returns the key of that row.
func newTestTransaction(t *testing.T) (*Connection, *Transaction, int64) {
	t.Helper()
	logger := zap.NewNop().Sugar()

	conn := NewConnection("", logger)
	require.Equal(t, StatusSuccess, conn.Init())
	t.Cleanup(func() { require.NoError(t, conn.Close()) })

	txn, status := conn.BeginTransaction()
	require.Equal(t, StatusSuccess, status)
	t.Cleanup(txn.Close)

	require.Equal(t, StatusSuccess, txn.CreateDb(testDBName, 3))
	require.Equal(t, StatusSuccess, txn.CreateObjectStore(testDBName, testStoreName))
	key, status := txn.AddData(testDBName, testStoreName, []byte{1, 2, 3})
	require.Equal(t, StatusSuccess, status)

	return conn, txn, key
}

func TestTransaction_CreateDb_RejectNegativeVersion(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusBadVersionNumber, txn.CreateDb("foo", -2))
	require.Equal(t, StatusBadVersionNumber, txn.CreateDb("foo", 0))
}

func TestTransaction_CreateDb_RejectSameName(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusAlreadyExists, txn.CreateDb(testDBName, 10))
}

func TestTransaction_UpdateDbVersion(t *testing.T) {
	_, txn, _ := newTestTransaction(t)

	version, status := txn.GetDbVersion(testDBName)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, int64(3), version)

	require.Equal(t, StatusSuccess, txn.UpdateDbVersion(testDBName, 10))
	version, status = txn.GetDbVersion(testDBName)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, int64(10), version)
}

func TestTransaction_UpdateDbVersion_CannotLowerVersion(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusBadVersionNumber, txn.UpdateDbVersion(testDBName, 2))
	// Equal is rejected too; the version must be strictly greater.
	require.Equal(t, StatusBadVersionNumber, txn.UpdateDbVersion(testDBName, 3))
	require.Equal(t, StatusBadVersionNumber, txn.UpdateDbVersion(testDBName, 0))
	require.Equal(t, StatusBadVersionNumber, txn.UpdateDbVersion(testDBName, -2))
}

func TestTransaction_UpdateDbVersion_NotFound(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusNotFound, txn.UpdateDbVersion("foo", 10))
}

func TestTransaction_GetDbVersion_NotFound(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	_, status := txn.GetDbVersion("foo")
	require.Equal(t, StatusNotFound, status)
}

func TestTransaction_DeleteDb_NotFound(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusNotFound, txn.DeleteDb("foo"))
}

func TestTransaction_DeleteDb_Cascades(t *testing.T) {
	_, txn, existingKey := newTestTransaction(t)
	require.Equal(t, StatusSuccess, txn.DeleteDb(testDBName))

	_, status := txn.GetDbVersion(testDBName)
	require.Equal(t, StatusNotFound, status)
	_, status = txn.ListObjectStores(testDBName)
	require.Equal(t, StatusNotFound, status)
	_, status = txn.GetData(testDBName, testStoreName, existingKey)
	require.Equal(t, StatusNotFound, status)
}

func TestTransaction_CreateObjectStore_UnknownDbName(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusNotFound, txn.CreateObjectStore("foo", testStoreName))
}

func TestTransaction_CreateObjectStore_RejectSameName(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusAlreadyExists, txn.CreateObjectStore(testDBName, testStoreName))
}

func TestTransaction_DeleteObjectStore_Cascades(t *testing.T) {
	_, txn, existingKey := newTestTransaction(t)
	require.Equal(t, StatusSuccess, txn.DeleteObjectStore(testDBName, testStoreName))

	names, status := txn.ListObjectStores(testDBName)
	require.Equal(t, StatusSuccess, status)
	require.Empty(t, names)
	_, status = txn.GetData(testDBName, testStoreName, existingKey)
	require.Equal(t, StatusNotFound, status)
}

func TestTransaction_DeleteObjectStore_NotFound(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusNotFound, txn.DeleteObjectStore(testDBName, "foo"))
	require.Equal(t, StatusNotFound, txn.DeleteObjectStore("foo", testStoreName))
}

func TestTransaction_ListObjectStores(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusSuccess, txn.CreateObjectStore(testDBName, "other"))

	names, status := txn.ListObjectStores(testDBName)
	require.Equal(t, StatusSuccess, status)
	require.ElementsMatch(t, []string{testStoreName, "other"}, names)
}

func TestTransaction_AddData_GeneratesSequentialKeys(t *testing.T) {
	_, txn, existingKey := newTestTransaction(t)
	require.Equal(t, int64(1), existingKey)

	key, status := txn.AddData(testDBName, testStoreName, []byte{4})
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, int64(2), key)
}

func TestTransaction_AddData_SkipsPastExplicitKeys(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusSuccess,
		txn.UpdateData(testDBName, testStoreName, 100, []byte{9}))

	key, status := txn.AddData(testDBName, testStoreName, []byte{4})
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, int64(101), key)
}

// Key generation is max-plus-one, not a monotonic counter: deleting the
// maximum row makes its key value come back on the next insert. Dependent
// code relies on this, so it is pinned here.
func TestTransaction_AddData_ReusesDeletedMax(t *testing.T) {
	_, txn, existingKey := newTestTransaction(t)
	require.Equal(t, StatusSuccess,
		txn.DeleteData(testDBName, testStoreName, existingKey))

	key, status := txn.AddData(testDBName, testStoreName, []byte{4})
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, existingKey, key)
}

func TestTransaction_AddData_UnknownStore(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	_, status := txn.AddData(testDBName, "foo", []byte{4})
	require.Equal(t, StatusNotFound, status)
}

func TestTransaction_GetData(t *testing.T) {
	_, txn, existingKey := newTestTransaction(t)
	data, status := txn.GetData(testDBName, testStoreName, existingKey)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, []byte{1, 2, 3}, data)
}

func TestTransaction_GetData_NotFound(t *testing.T) {
	_, txn, existingKey := newTestTransaction(t)
	_, status := txn.GetData(testDBName, testStoreName, existingKey+1)
	require.Equal(t, StatusNotFound, status)
	_, status = txn.GetData(testDBName, "foo", existingKey)
	require.Equal(t, StatusNotFound, status)
	_, status = txn.GetData("foo", testStoreName, existingKey)
	require.Equal(t, StatusNotFound, status)
}

func TestTransaction_UpdateData_InsertsAndReplaces(t *testing.T) {
	_, txn, existingKey := newTestTransaction(t)

	// Replace the existing row.
	require.Equal(t, StatusSuccess,
		txn.UpdateData(testDBName, testStoreName, existingKey, []byte{7}))
	data, status := txn.GetData(testDBName, testStoreName, existingKey)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, []byte{7}, data)

	// A missing key is an insert, not an error.
	require.Equal(t, StatusSuccess,
		txn.UpdateData(testDBName, testStoreName, 50, []byte{8}))
	data, status = txn.GetData(testDBName, testStoreName, 50)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, []byte{8}, data)
}

func TestTransaction_UpdateData_UnknownStore(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusNotFound,
		txn.UpdateData(testDBName, "foo", 1, []byte{8}))
}

func TestTransaction_DeleteData_Idempotent(t *testing.T) {
	_, txn, existingKey := newTestTransaction(t)
	require.Equal(t, StatusSuccess,
		txn.DeleteData(testDBName, testStoreName, existingKey))
	// Deleting missing rows, stores, or databases is still success.
	require.Equal(t, StatusSuccess,
		txn.DeleteData(testDBName, testStoreName, existingKey))
	require.Equal(t, StatusSuccess, txn.DeleteData(testDBName, "foo", 1))
	require.Equal(t, StatusSuccess, txn.DeleteData("foo", testStoreName, 1))
}

func TestTransaction_FindData(t *testing.T) {
	_, txn, _ := newTestTransaction(t)
	for _, key := range []int64{5, 9} {
		require.Equal(t, StatusSuccess,
			txn.UpdateData(testDBName, testStoreName, key, []byte{1}))
	}

	// No position: first or last key depending on direction.
	key, status := txn.FindData(testDBName, testStoreName, nil, true)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, int64(1), key)
	key, status = txn.FindData(testDBName, testStoreName, nil, false)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, int64(9), key)

	// From a position: strictly next in the direction.
	pos := int64(1)
	key, status = txn.FindData(testDBName, testStoreName, &pos, true)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, int64(5), key)
	pos = 9
	key, status = txn.FindData(testDBName, testStoreName, &pos, false)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, int64(5), key)
}

func TestTransaction_FindData_Exhausted(t *testing.T) {
	_, txn, existingKey := newTestTransaction(t)

	_, status := txn.FindData(testDBName, testStoreName, &existingKey, true)
	require.Equal(t, StatusNotFound, status)
	pos := existingKey
	_, status = txn.FindData(testDBName, testStoreName, &pos, false)
	require.Equal(t, StatusNotFound, status)
	_, status = txn.FindData(testDBName, "foo", nil, true)
	require.Equal(t, StatusNotFound, status)
}

func TestConnection_SecondTransactionIsBusy(t *testing.T) {
	conn, _, _ := newTestTransaction(t)
	_, status := conn.BeginTransaction()
	require.Equal(t, StatusBusy, status)
}

func TestConnection_RollbackIsolation(t *testing.T) {
	logger := zap.NewNop().Sugar()
	conn := NewConnection("", logger)
	require.Equal(t, StatusSuccess, conn.Init())
	t.Cleanup(func() { require.NoError(t, conn.Close()) })

	txn, status := conn.BeginTransaction()
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, StatusSuccess, txn.CreateDb(testDBName, 1))
	// Dropped without Commit: everything rolls back.
	txn.Close()

	txn, status = conn.BeginTransaction()
	require.Equal(t, StatusSuccess, status)
	defer txn.Close()
	_, status = txn.GetDbVersion(testDBName)
	require.Equal(t, StatusNotFound, status)
}

func TestConnection_CommitPersists(t *testing.T) {
	logger := zap.NewNop().Sugar()
	conn := NewConnection("", logger)
	require.Equal(t, StatusSuccess, conn.Init())
	t.Cleanup(func() { require.NoError(t, conn.Close()) })

	txn, status := conn.BeginTransaction()
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, StatusSuccess, txn.CreateDb(testDBName, 1))
	require.Equal(t, StatusSuccess, txn.Commit())

	txn, status = conn.BeginTransaction()
	require.Equal(t, StatusSuccess, status)
	defer txn.Close()
	version, status := txn.GetDbVersion(testDBName)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, int64(1), version)
}

func TestConnection_FlushIsSafeWithActiveTransaction(t *testing.T) {
	conn, txn, _ := newTestTransaction(t)
	require.Equal(t, StatusSuccess, conn.Flush())
	require.Equal(t, StatusSuccess, txn.Commit())
	require.Equal(t, StatusSuccess, conn.Flush())
}

func TestConnection_InitIsIdempotent(t *testing.T) {
	conn, txn, existingKey := newTestTransaction(t)
	require.Equal(t, StatusSuccess, txn.Commit())

	require.Equal(t, StatusSuccess, conn.Init())
	txn, status := conn.BeginTransaction()
	require.Equal(t, StatusSuccess, status)
	defer txn.Close()
	data, status := txn.GetData(testDBName, testStoreName, existingKey)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, []byte{1, 2, 3}, data)
}
