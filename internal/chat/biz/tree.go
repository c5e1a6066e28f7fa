package biz

import (
	"sort"

	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/types"
)

// The message tree turns a flat, unordered message list for one chat into
// navigable structure without touching storage. Ordering between siblings
// is (created_at, seq): seq is the store's insertion sequence and breaks
// timestamp collisions deterministically.

func messageBefore(a, b *types.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

// Thread walks parent pointers from the given leaf to the root and returns
// the chain in root-first order. A dangling parent pointer truncates the
// chain rather than failing.
func Thread(leafID string, all []*types.Message) []*types.Message {
	byID := make(map[string]*types.Message, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	var chain []*types.Message
	current := byID[leafID]
	for current != nil {
		chain = append(chain, current)
		if current.ParentMessageID == nil {
			break
		}
		current = byID[*current.ParentMessageID]
	}

	// Reverse to root-first order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return chain
}

// LatestLeaf picks the most recently created root and descends to the most
// recently created child at every level until it reaches a message with no
// children. Returns "" for an empty chat.
func LatestLeaf(all []*types.Message) string {
	children := childIndex(all)

	var root *types.Message
	for _, m := range all {
		if m.ParentMessageID != nil {
			continue
		}
		if root == nil || messageBefore(root, m) {
			root = m
		}
	}
	if root == nil {
		return ""
	}

	return descend(root, children).ID
}

// BranchLeaf is LatestLeaf scoped to the subtree rooted at the given
// message. Used to jump to a branch's tip when the user switches branches.
func BranchLeaf(messageID string, all []*types.Message) string {
	var start *types.Message
	for _, m := range all {
		if m.ID == messageID {
			start = m
			break
		}
	}
	if start == nil {
		return ""
	}

	return descend(start, childIndex(all)).ID
}

// BranchInfo describes a message's position among its siblings. Returns nil
// when the message has no siblings (nothing to navigate).
func BranchInfo(messageID string, all []*types.Message) *types.BranchInfo {
	var target *types.Message
	for _, m := range all {
		if m.ID == messageID {
			target = m
			break
		}
	}
	if target == nil {
		return nil
	}

	var siblings []*types.Message
	for _, m := range all {
		if sameParent(m, target) {
			siblings = append(siblings, m)
		}
	}
	if len(siblings) < 2 {
		return nil
	}

	sort.SliceStable(siblings, func(i, j int) bool {
		return messageBefore(siblings[i], siblings[j])
	})

	info := &types.BranchInfo{Total: len(siblings)}
	for i, s := range siblings {
		if s.ID != messageID {
			continue
		}
		info.Index = i
		if i > 0 {
			info.PrevSiblingID = siblings[i-1].ID
		}
		if i < len(siblings)-1 {
			info.NextSiblingID = siblings[i+1].ID
		}
		break
	}

	return info
}

func sameParent(a, b *types.Message) bool {
	if a.ParentMessageID == nil || b.ParentMessageID == nil {
		return a.ParentMessageID == nil && b.ParentMessageID == nil
	}
	return *a.ParentMessageID == *b.ParentMessageID
}

func childIndex(all []*types.Message) map[string][]*types.Message {
	children := make(map[string][]*types.Message)
	for _, m := range all {
		if m.ParentMessageID != nil {
			children[*m.ParentMessageID] = append(children[*m.ParentMessageID], m)
		}
	}
	return children
}

func descend(start *types.Message, children map[string][]*types.Message) *types.Message {
	current := start
	for {
		kids := children[current.ID]
		if len(kids) == 0 {
			return current
		}

		next := kids[0]
		for _, k := range kids[1:] {
			if messageBefore(next, k) {
				next = k
			}
		}
		current = next
	}
}
