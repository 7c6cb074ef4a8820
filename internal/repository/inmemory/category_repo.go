package inmemory

import (
	"cmp"
	"context"
	"slices"

	"todoTracker/internal/models/category"
	repo "todoTracker/internal/repository"
)

type categoryRepo struct {
	uow *unitOfWork
}

func (r *categoryRepo) nameTaken(userID, exceptID int64, name string) bool {
	for _, c := range r.uow.st.categories {
		if c.UserID == userID && c.ID != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

func (r *categoryRepo) Create(ctx context.Context, c *category.Category) (*category.Category, error) {
	st := r.uow.st
	if r.nameTaken(c.UserID, 0, c.Name) {
		return nil, repo.ErrDuplicate
	}
	st.categorySeq++
	stored := *c
	stored.ID = st.categorySeq
	stored.CreatedAt = r.uow.now()
	st.categories[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (r *categoryRepo) Get(ctx context.Context, userID, id int64) (*category.Category, error) {
	c, ok := r.uow.st.categories[id]
	if !ok || c.UserID != userID {
		return nil, repo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *categoryRepo) List(ctx context.Context, userID int64) ([]*category.Category, error) {
	res := []*category.Category{}
	for _, c := range r.uow.st.categories {
		if c.UserID == userID {
			cp := *c
			res = append(res, &cp)
		}
	}
	slices.SortFunc(res, func(a, b *category.Category) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return res, nil
}

func (r *categoryRepo) Update(ctx context.Context, c *category.Category) (*category.Category, error) {
	cur, err := r.Get(ctx, c.UserID, c.ID)
	if err != nil {
		return nil, err
	}
	if r.nameTaken(c.UserID, c.ID, c.Name) {
		return nil, repo.ErrDuplicate
	}
	cur.Name = c.Name
	cur.Color = c.Color
	r.uow.st.categories[cur.ID] = cur
	cp := *cur
	return &cp, nil
}

func (r *categoryRepo) Delete(ctx context.Context, userID, id int64) error {
	if _, err := r.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(r.uow.st.categories, id)
	for k := range r.uow.st.links {
		if k.categoryID == id {
			delete(r.uow.st.links, k)
		}
	}
	return nil
}

func (r *categoryRepo) GetLink(ctx context.Context, taskID, categoryID int64) (*category.Link, error) {
	l, ok := r.uow.st.links[linkKey{taskID: taskID, categoryID: categoryID}]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *categoryRepo) AddLink(ctx context.Context, taskID, categoryID int64) (*category.Link, error) {
	k := linkKey{taskID: taskID, categoryID: categoryID}
	if l, ok := r.uow.st.links[k]; ok {
		cp := *l
		return &cp, nil
	}
	l := &category.Link{TaskID: taskID, CategoryID: categoryID, CreatedAt: r.uow.now()}
	r.uow.st.links[k] = l
	cp := *l
	return &cp, nil
}

func (r *categoryRepo) RemoveLink(ctx context.Context, taskID, categoryID int64) (bool, error) {
	k := linkKey{taskID: taskID, categoryID: categoryID}
	if _, ok := r.uow.st.links[k]; !ok {
		return false, nil
	}
	delete(r.uow.st.links, k)
	return true, nil
}

func (r *categoryRepo) ListTaskCategoryIDs(ctx context.Context, taskID int64) ([]int64, error) {
	ids := []int64{}
	for k := range r.uow.st.links {
		if k.taskID == taskID {
			ids = append(ids, k.categoryID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
