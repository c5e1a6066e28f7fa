package biz

import (
	"testing"
	"time"

	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var treeBase = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func msg(id string, parent string, offset time.Duration, seq int64) *types.Message {
	m := &types.Message{
		ID:        id,
		ChatID:    "chat-1",
		Role:      types.RoleUser,
		Seq:       seq,
		CreatedAt: treeBase.Add(offset),
	}
	if parent != "" {
		m.ParentMessageID = &parent
	}
	return m
}

// A chat with one edit branch:
//
//	root ─ a1 ─ u2 ─ a2
//	         └ u2b ─ a2b   (u2b is the edited sibling of u2, created later)
func branchedChat() []*types.Message {
	return []*types.Message{
		msg("root", "", 0, 1),
		msg("a1", "root", time.Second, 2),
		msg("u2", "a1", 2*time.Second, 3),
		msg("a2", "u2", 3*time.Second, 4),
		msg("u2b", "a1", 4*time.Second, 5),
		msg("a2b", "u2b", 5*time.Second, 6),
	}
}

func TestThread(t *testing.T) {
	all := branchedChat()

	thread := Thread("a2b", all)
	require.Len(t, thread, 4)
	assert.Equal(t, "root", thread[0].ID)
	assert.Equal(t, "a1", thread[1].ID)
	assert.Equal(t, "u2b", thread[2].ID)
	assert.Equal(t, "a2b", thread[3].ID)

	// The original branch is still intact.
	thread = Thread("a2", all)
	require.Len(t, thread, 4)
	assert.Equal(t, "u2", thread[2].ID)
}

func TestThreadUnknownLeaf(t *testing.T) {
	assert.Empty(t, Thread("missing", branchedChat()))
}

func TestThreadDanglingParent(t *testing.T) {
	orphanParent := "gone"
	all := []*types.Message{
		{ID: "m1", ParentMessageID: &orphanParent, CreatedAt: treeBase, Seq: 1},
	}

	thread := Thread("m1", all)
	require.Len(t, thread, 1)
	assert.Equal(t, "m1", thread[0].ID)
}

func TestLatestLeaf(t *testing.T) {
	assert.Equal(t, "", LatestLeaf(nil))

	// The newer sibling branch wins.
	assert.Equal(t, "a2b", LatestLeaf(branchedChat()))
}

func TestLatestLeafPicksLatestRoot(t *testing.T) {
	all := []*types.Message{
		msg("r1", "", 0, 1),
		msg("r1c", "r1", time.Second, 2),
		msg("r2", "", 2*time.Second, 3),
	}

	assert.Equal(t, "r2", LatestLeaf(all))
}

func TestLatestLeafSeqBreaksTimestampTie(t *testing.T) {
	// Same created_at on both siblings: the higher seq was inserted later.
	all := []*types.Message{
		msg("root", "", 0, 1),
		msg("s1", "root", time.Second, 2),
		msg("s2", "root", time.Second, 3),
	}

	assert.Equal(t, "s2", LatestLeaf(all))
}

func TestBranchLeaf(t *testing.T) {
	all := branchedChat()

	assert.Equal(t, "a2", BranchLeaf("u2", all))
	assert.Equal(t, "a2b", BranchLeaf("u2b", all))
	assert.Equal(t, "a2b", BranchLeaf("root", all))
	assert.Equal(t, "", BranchLeaf("missing", all))
}

func TestBranchInfo(t *testing.T) {
	all := branchedChat()

	info := BranchInfo("u2", all)
	require.NotNil(t, info)
	assert.Equal(t, 0, info.Index)
	assert.Equal(t, 2, info.Total)
	assert.Empty(t, info.PrevSiblingID)
	assert.Equal(t, "u2b", info.NextSiblingID)

	info = BranchInfo("u2b", all)
	require.NotNil(t, info)
	assert.Equal(t, 1, info.Index)
	assert.Equal(t, "u2", info.PrevSiblingID)
	assert.Empty(t, info.NextSiblingID)
}

func TestBranchInfoSingleChild(t *testing.T) {
	all := branchedChat()

	// a1 is root's only child: nothing to navigate.
	assert.Nil(t, BranchInfo("a1", all))
	assert.Nil(t, BranchInfo("missing", all))
}

func TestBranchInfoRootSiblings(t *testing.T) {
	all := []*types.Message{
		msg("r1", "", 0, 1),
		msg("r2", "", time.Second, 2),
	}

	info := BranchInfo("r1", all)
	require.NotNil(t, info)
	assert.Equal(t, 2, info.Total)
	assert.Equal(t, "r2", info.NextSiblingID)
}
