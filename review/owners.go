package review

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"contentreview/models"
)

// MergeOwners returns the directly assigned users of settings together with
// every user reachable through its groups and their sub-groups, once each,
// ordered by ID. Groups already visited are skipped, so cyclic group graphs
// terminate.
func (r *Resolver) MergeOwners(ctx context.Context, settings Settings) ([]models.User, error) {
	if settings == nil {
		return nil, nil
	}

	users, groups := settings.ReviewOwners()
	merged := make(map[uint]models.User, len(users))
	for _, u := range users {
		merged[u.ID] = u
	}

	visited := make(map[uint]bool)
	stack := make([]uint, 0, len(groups))
	for _, g := range groups {
		stack = append(stack, g.ID)
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true

		members, err := r.groups.GroupUsers(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("review: load members of group %d: %w", id, err)
		}
		for _, u := range members {
			if _, ok := merged[u.ID]; !ok {
				merged[u.ID] = u
			}
		}

		children, err := r.groups.SubGroups(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("review: load sub-groups of group %d: %w", id, err)
		}
		for _, child := range children {
			if !visited[child.ID] {
				stack = append(stack, child.ID)
			}
		}
	}

	result := make([]models.User, 0, len(merged))
	for _, u := range merged {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// OwnerNames summarises the directly assigned owners: group breadcrumbs first, then user names.
func (r *Resolver) OwnerNames(ctx context.Context, settings Settings) (string, error) {
	if settings == nil {
		return "", nil
	}

	users, groups := settings.ReviewOwners()
	names := make([]string, 0, len(users)+len(groups))
	for _, g := range groups {
		crumbs, err := r.Breadcrumbs(ctx, g)
		if err != nil {
			return "", err
		}
		names = append(names, crumbs)
	}
	for _, u := range users {
		names = append(names, u.Name())
	}
	return strings.Join(names, ", "), nil
}

// Breadcrumbs renders a group's ancestor chain as "Root > Child > Group".
func (r *Resolver) Breadcrumbs(ctx context.Context, group models.Group) (string, error) {
	titles := []string{group.Title}
	visited := map[uint]bool{group.ID: true}

	parentID := group.ParentID
	for depth := 0; parentID != nil && depth < maxHierarchyDepth; depth++ {
		if visited[*parentID] {
			break
		}
		visited[*parentID] = true

		parent, err := r.groups.Group(ctx, *parentID)
		if err != nil {
			return "", fmt.Errorf("review: load group %d: %w", *parentID, err)
		}
		if parent == nil {
			break
		}
		titles = append(titles, parent.Title)
		parentID = parent.ParentID
	}

	for i, j := 0, len(titles)-1; i < j; i, j = i+1, j-1 {
		titles[i], titles[j] = titles[j], titles[i]
	}
	return strings.Join(titles, " > "), nil
}
