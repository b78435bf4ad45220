package usecase

import (
	"errors"
	"fmt"
	"time"

	"FeedPub/internal/domain"
)

// Assemble builds the chapter graph for feeds. Chapter Prev/Next follow the
// spine exactly: table of contents, then each feed chapter followed by its
// article chapters. The ends wrap around to the table of contents. Times are
// rendered in loc; nil means UTC.
func Assemble(title string, feeds []domain.Feed, loc *time.Location) domain.Publication {
	if loc == nil {
		loc = time.UTC
	}
	pub := domain.Publication{
		Title:    title,
		Feeds:    feeds,
		Chapters: make(map[string]domain.Chapter),
	}

	pub.Spine = append(pub.Spine, domain.TOCFilename)
	for _, f := range feeds {
		pub.Spine = append(pub.Spine, f.Filename)
		for _, a := range f.Articles {
			pub.Spine = append(pub.Spine, a.Filename)
		}
	}

	prev, next := neighbours(pub.Spine)

	pub.Chapters[domain.TOCFilename] = domain.Chapter{
		Filename: domain.TOCFilename,
		Title:    "Table of Contents",
		Kind:     domain.ChapterTOC,
		Content:  renderTOC(title, feeds),
		Prev:     prev[domain.TOCFilename],
		Next:     next[domain.TOCFilename],
	}

	for k, f := range feeds {
		fc := domain.Chapter{
			Filename:    f.Filename,
			Title:       f.Title,
			Kind:        domain.ChapterFeed,
			Prev:        prev[f.Filename],
			Next:        next[f.Filename],
			Up:          domain.TOCFilename,
			PrevSection: domain.TOCFilename,
			NextSection: domain.TOCFilename,
		}
		if k > 0 {
			fc.PrevSection = feeds[k-1].Filename
		}
		if k < len(feeds)-1 {
			fc.NextSection = feeds[k+1].Filename
		}
		fc.Content = renderFeed(f, fc)
		pub.Chapters[f.Filename] = fc

		for _, a := range f.Articles {
			ac := domain.Chapter{
				Filename: a.Filename,
				Title:    a.Title,
				Kind:     domain.ChapterArticle,
				Prev:     prev[a.Filename],
				Next:     next[a.Filename],
				Up:       f.Filename,
			}
			ac.Content = renderArticle(a, f, ac, loc)
			pub.Chapters[a.Filename] = ac
		}
	}

	pub.TOC = make([]domain.TOCEntry, 0, len(feeds))
	for _, f := range feeds {
		entry := domain.TOCEntry{Title: f.Title, Filename: f.Filename}
		for _, a := range f.Articles {
			entry.Children = append(entry.Children, domain.TOCEntry{Title: a.Title, Filename: a.Filename})
		}
		pub.TOC = append(pub.TOC, entry)
	}

	return pub
}

func neighbours(spine []string) (prev, next map[string]string) {
	prev = make(map[string]string, len(spine))
	next = make(map[string]string, len(spine))
	if len(spine) < 2 {
		return prev, next
	}
	for i, name := range spine {
		prev[name] = spine[(i-1+len(spine))%len(spine)]
		next[name] = spine[(i+1)%len(spine)]
	}
	return prev, next
}

// Validate checks the invariants the serializer relies on: the spine starts
// with the table of contents, every spine entry has a chapter, Prev/Next
// agree with spine adjacency, and feed indexes are dense from 1.
func Validate(pub domain.Publication) error {
	if len(pub.Spine) == 0 || pub.Spine[0] != domain.TOCFilename {
		return errors.New("spine must start with the table of contents")
	}
	if len(pub.Spine) != len(pub.Chapters) {
		return fmt.Errorf("spine has %d entries but publication has %d chapters", len(pub.Spine), len(pub.Chapters))
	}

	for i, name := range pub.Spine {
		ch, ok := pub.Chapters[name]
		if !ok {
			return fmt.Errorf("spine entry %s has no chapter", name)
		}
		if len(pub.Spine) == 1 {
			break
		}
		wantNext := pub.Spine[(i+1)%len(pub.Spine)]
		wantPrev := pub.Spine[(i-1+len(pub.Spine))%len(pub.Spine)]
		if ch.Next != wantNext {
			return fmt.Errorf("chapter %s: next is %s, spine says %s", name, ch.Next, wantNext)
		}
		if ch.Prev != wantPrev {
			return fmt.Errorf("chapter %s: previous is %s, spine says %s", name, ch.Prev, wantPrev)
		}
	}

	for k, f := range pub.Feeds {
		if f.Index != k+1 {
			return fmt.Errorf("feed %q has index %d, expected %d", f.Title, f.Index, k+1)
		}
		if len(f.Articles) == 0 {
			return fmt.Errorf("feed %q has no articles", f.Title)
		}
	}

	return nil
}
