/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

// PageRequest asks for one page of results. Pages are numbered from 1.
type PageRequest struct {
	page     int
	pageSize int
}

// NewPageRequest constructs a PageRequest; values below 1 fall back to
// page 1 and a page size of 10.
func NewPageRequest(page int, pageSize int) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize}
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		return 10
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		return 1
	}
	return p.page
}

// GetOffset is the number of rows before the first row of the page.
func (p *PageRequest) GetOffset() int64 {
	return int64(p.GetPage()-1) * int64(p.GetPageSize())
}

func (p *PageRequest) GetLimit() int64 {
	return int64(p.GetPageSize())
}

// Pagination holds paged result items along with pagination metadata.
// Total counts every matching row, ignoring the page bounds.
type Pagination[T any] struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
	Items    []T   `json:"items"`
}

// NewPagination builds a page of items for req.
func NewPagination[T any](req *PageRequest, items []T, total int64) *Pagination[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return &Pagination[T]{Page: req.GetPage(), PageSize: req.GetPageSize(), Total: total, Items: items}
}

// TotalPages is the number of pages Total spans.
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

func (p *Pagination[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}
