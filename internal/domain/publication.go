package domain

// ChapterKind distinguishes the three chapter shapes of a publication.
type ChapterKind string

const (
	ChapterTOC     ChapterKind = "toc"
	ChapterFeed    ChapterKind = "feed"
	ChapterArticle ChapterKind = "article"
)

// TOCFilename is the file of the table of contents chapter.
const TOCFilename = "toc.xhtml"

// Chapter is one node of the chapter graph. Prev and Next follow the
// reading order; PrevSection and NextSection are only set on feed chapters
// and point at the adjacent feed chapters. All links hold chapter filenames.
type Chapter struct {
	Filename    string
	Title       string
	Kind        ChapterKind
	Content     string
	Prev        string
	Next        string
	Up          string
	PrevSection string
	NextSection string
}

// TOCEntry is one line of the navigation tree handed to the serializer.
type TOCEntry struct {
	Title    string
	Filename string
	Children []TOCEntry
}

// Publication is the fully linked chapter graph of one run.
type Publication struct {
	Title    string
	Feeds    []Feed
	Chapters map[string]Chapter
	Spine    []string
	TOC      []TOCEntry
}

// SpineChapters returns chapters in reading order.
func (p Publication) SpineChapters() []Chapter {
	out := make([]Chapter, 0, len(p.Spine))
	for _, name := range p.Spine {
		out = append(out, p.Chapters[name])
	}
	return out
}

// ArticleCount reports the number of article chapters.
func (p Publication) ArticleCount() int {
	n := 0
	for _, f := range p.Feeds {
		n += len(f.Articles)
	}
	return n
}
