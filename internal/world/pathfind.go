package world

// FindPath returns the shortest 4-connected path from start to goal, excluding
// start and ending at goal. It returns nil when goal equals start, when either
// end is out of bounds, or when goal cannot be reached. blocked may be nil.
//
// Neighbors are expanded in CardinalDirections order, so the same inputs always
// produce the same path.
func FindPath(start, goal Position, bounds Bounds, blocked func(Position) bool) []Position {
	if start == goal || !bounds.Contains(start) || !bounds.Contains(goal) {
		return nil
	}
	if blocked != nil && blocked(goal) {
		return nil
	}

	cameFrom := map[Position]Position{start: start}
	queue := []Position{start}

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if cur == goal {
			break
		}
		for _, d := range CardinalDirections {
			next := cur.Add(d)
			if !bounds.Contains(next) {
				continue
			}
			if _, seen := cameFrom[next]; seen {
				continue
			}
			if blocked != nil && blocked(next) {
				continue
			}
			cameFrom[next] = cur
			queue = append(queue, next)
		}
	}

	if _, ok := cameFrom[goal]; !ok {
		return nil
	}

	path := make([]Position, 0, Manhattan(start, goal))
	for p := goal; p != start; p = cameFrom[p] {
		path = append(path, p)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// FindPath plans a route on this grid honoring its obstacles.
func (g *Grid) FindPath(start, goal Position) []Position {
	return FindPath(start, goal, g.Bounds, g.IsObstacle)
}

// Reachable returns every passable cell reachable from start, in BFS order
// (start first). It returns nil if start itself is not passable.
func (g *Grid) Reachable(start Position) []Position {
	if !g.Passable(start) {
		return nil
	}
	seen := map[Position]bool{start: true}
	order := []Position{start}
	for head := 0; head < len(order); head++ {
		cur := order[head]
		for _, d := range CardinalDirections {
			next := cur.Add(d)
			if seen[next] || !g.Passable(next) {
				continue
			}
			seen[next] = true
			order = append(order, next)
		}
	}
	return order
}
