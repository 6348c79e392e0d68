package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type Screen string

const (
	ScreenMovies      Screen = "movies"
	ScreenMovieDetail Screen = "movie_detail"
	ScreenCategories  Screen = "categories"
	ScreenMovieForm   Screen = "movie_form"
	ScreenReviewForm  Screen = "review_form"
	ScreenConfirm     Screen = "confirm"
)

type Movie struct {
	ID            int64
	Title         string
	Director      string
	Genre         string
	Watched       bool
	CategoryID    *int64
	Category      string
	AverageRating float64
	ReviewCount   int
}

type Category struct {
	ID   int64
	Name string
}

type Review struct {
	ID      int64
	Rating  float64
	Comment string
}

type MovieInput struct {
	Title    string
	Director string
	Genre    string
}

// Client is the data source behind the model. Implementations are expected
// to enforce validation and ownership; the model only reports their errors.
type Client interface {
	ListMovies(ctx context.Context) ([]Movie, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListReviews(ctx context.Context, movieID int64) ([]Review, error)
	AddMovie(ctx context.Context, input MovieInput) (Movie, error)
	SetWatched(ctx context.Context, movieID int64, watched bool) error
	DeleteMovie(ctx context.Context, movieID int64) error
	AddReview(ctx context.Context, movieID int64, rating float64, comment string) error
}

type Options struct {
	Client Client
	IsTTY  func() bool
}

type Model struct {
	client Client

	screen   Screen
	previous Screen
	err      string
	status   string

	moviesList     list.Model
	categoriesList list.Model

	allMovies       []Movie
	moviesByID      map[int64]Movie
	categoriesByID  map[int64]Category
	categoryFilter  *int64
	selectedMovieID int64
	selectedReviews []Review
	pendingDeleteID int64
	confirmPrompt   string

	movieInputs  []textinput.Model
	reviewInputs []textinput.Model
	focusedInput int
}

type loadedMsg struct {
	movies     []Movie
	categories []Category
	err        error
}

type reviewsMsg struct {
	movieID int64
	reviews []Review
	err     error
}

type actionMsg struct {
	status string
	err    error
}

func Run(opts Options) error {
	if opts.IsTTY != nil && !opts.IsTTY() {
		return fmt.Errorf("tui: requires a tty")
	}
	_, err := tea.NewProgram(NewModel(opts), tea.WithAltScreen()).Run()
	return err
}

func NewModel(opts Options) Model {
	delegate := list.NewDefaultDelegate()

	moviesList := list.New([]list.Item{}, delegate, 0, 0)
	moviesList.Title = "Movies"
	moviesList.SetShowStatusBar(false)
	moviesList.SetFilteringEnabled(true)
	moviesList.SetShowHelp(false)
	moviesList.SetSize(80, 20)

	categoriesList := list.New([]list.Item{}, delegate, 0, 0)
	categoriesList.Title = "Categories"
	categoriesList.SetShowStatusBar(false)
	categoriesList.SetFilteringEnabled(true)
	categoriesList.SetShowHelp(false)
	categoriesList.SetSize(80, 20)

	return Model{
		client:         opts.Client,
		screen:         ScreenMovies,
		moviesList:     moviesList,
		categoriesList: categoriesList,
		moviesByID:     map[int64]Movie{},
		categoriesByID: map[int64]Category{},
		movieInputs:    newInputs("Title", "Director", "Genre"),
		reviewInputs:   newInputs("Rating (1-5)", "Comment (optional)"),
	}
}

func newInputs(placeholders ...string) []textinput.Model {
	inputs := make([]textinput.Model, 0, len(placeholders))
	for _, placeholder := range placeholders {
		input := textinput.New()
		input.Placeholder = placeholder
		input.CharLimit = 256
		inputs = append(inputs, input)
	}
	return inputs
}

func (m Model) Init() tea.Cmd {
	if m.client == nil {
		return nil
	}
	return m.loadDataCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if typed.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if typed.String() == "q" && !m.inForm() && !m.filtering() {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		height := typed.Height - 4
		if height < 1 {
			height = 1
		}
		m.moviesList.SetSize(typed.Width, height)
		m.categoriesList.SetSize(typed.Width, height)
		return m, nil
	case loadedMsg:
		if typed.err != nil {
			m.err = typed.err.Error()
			return m, nil
		}
		m.populateLists(typed.movies, typed.categories)
		return m, nil
	case reviewsMsg:
		if typed.err != nil {
			m.err = typed.err.Error()
			return m, nil
		}
		if typed.movieID == m.selectedMovieID {
			m.selectedReviews = typed.reviews
		}
		return m, nil
	case actionMsg:
		if typed.err != nil {
			m.err = typed.err.Error()
			m.status = ""
			return m, nil
		}
		m.err = ""
		m.status = typed.status
		if m.screen == ScreenMovieDetail {
			return m, tea.Batch(m.loadDataCmd(), m.loadReviewsCmd(m.selectedMovieID))
		}
		return m, m.loadDataCmd()
	}

	switch m.screen {
	case ScreenMovieForm:
		return m.updateMovieForm(msg)
	case ScreenReviewForm:
		return m.updateReviewForm(msg)
	case ScreenConfirm:
		return m.updateConfirm(msg)
	case ScreenMovieDetail:
		return m.updateDetail(msg)
	case ScreenCategories:
		return m.updateCategories(msg)
	default:
		return m.updateMovies(msg)
	}
}

func (m Model) inForm() bool {
	return m.screen == ScreenMovieForm || m.screen == ScreenReviewForm
}

func (m Model) filtering() bool {
	switch m.screen {
	case ScreenMovies:
		return m.moviesList.FilterState() == list.Filtering
	case ScreenCategories:
		return m.categoriesList.FilterState() == list.Filtering
	default:
		return false
	}
}

func (m Model) updateMovies(msg tea.Msg) (tea.Model, tea.Cmd) {
	if typed, ok := msg.(tea.KeyMsg); ok && !m.filtering() {
		switch typed.String() {
		case "c":
			m.screen = ScreenCategories
			return m, nil
		case "m":
			m.categoryFilter = nil
			m.refreshMovieItems()
			return m, nil
		case "a":
			m.openMovieForm()
			return m, nil
		case "enter":
			movie, ok := m.selectedMovie()
			if !ok {
				return m, nil
			}
			m.selectedMovieID = movie.ID
			m.selectedReviews = nil
			m.previous = ScreenMovies
			m.screen = ScreenMovieDetail
			return m, m.loadReviewsCmd(movie.ID)
		case "w":
			movie, ok := m.selectedMovie()
			if !ok {
				return m, nil
			}
			return m, m.setWatchedCmd(movie)
		case "r":
			movie, ok := m.selectedMovie()
			if !ok {
				return m, nil
			}
			m.selectedMovieID = movie.ID
			m.openReviewForm(ScreenMovies)
			return m, nil
		case "d":
			movie, ok := m.selectedMovie()
			if !ok {
				return m, nil
			}
			m.askDelete(movie, ScreenMovies)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.moviesList, cmd = m.moviesList.Update(msg)
	return m, cmd
}

func (m Model) updateCategories(msg tea.Msg) (tea.Model, tea.Cmd) {
	if typed, ok := msg.(tea.KeyMsg); ok && !m.filtering() {
		switch typed.String() {
		case "m", "esc":
			m.screen = ScreenMovies
			return m, nil
		case "enter":
			item, ok := m.categoriesList.SelectedItem().(categoryItem)
			if !ok {
				return m, nil
			}
			id := item.id
			m.categoryFilter = &id
			m.refreshMovieItems()
			m.screen = ScreenMovies
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.categoriesList, cmd = m.categoriesList.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	typed, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	movie, found := m.moviesByID[m.selectedMovieID]
	switch typed.String() {
	case "esc":
		m.screen = ScreenMovies
		return m, nil
	case "w":
		if found {
			return m, m.setWatchedCmd(movie)
		}
	case "r":
		if found {
			m.openReviewForm(ScreenMovieDetail)
		}
	case "d":
		if found {
			m.askDelete(movie, ScreenMovies)
		}
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	typed, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch typed.String() {
	case "y":
		id := m.pendingDeleteID
		m.pendingDeleteID = 0
		m.confirmPrompt = ""
		m.screen = m.previous
		return m, m.deleteMovieCmd(id)
	case "n", "esc":
		m.pendingDeleteID = 0
		m.confirmPrompt = ""
		m.screen = m.previous
	}
	return m, nil
}

func (m Model) updateMovieForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if typed, ok := msg.(tea.KeyMsg); ok {
		switch typed.String() {
		case "esc":
			m.screen = m.previous
			return m, nil
		case "tab", "down":
			m.focusInput(m.movieInputs, m.focusedInput+1)
			return m, nil
		case "shift+tab", "up":
			m.focusInput(m.movieInputs, m.focusedInput-1)
			return m, nil
		case "enter":
			input := MovieInput{
				Title:    strings.TrimSpace(m.movieInputs[0].Value()),
				Director: strings.TrimSpace(m.movieInputs[1].Value()),
				Genre:    strings.TrimSpace(m.movieInputs[2].Value()),
			}
			m.screen = m.previous
			return m, m.addMovieCmd(input)
		}
	}

	var cmd tea.Cmd
	m.movieInputs[m.focusedInput], cmd = m.movieInputs[m.focusedInput].Update(msg)
	return m, cmd
}

func (m Model) updateReviewForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if typed, ok := msg.(tea.KeyMsg); ok {
		switch typed.String() {
		case "esc":
			m.screen = m.previous
			return m, nil
		case "tab", "down":
			m.focusInput(m.reviewInputs, m.focusedInput+1)
			return m, nil
		case "shift+tab", "up":
			m.focusInput(m.reviewInputs, m.focusedInput-1)
			return m, nil
		case "enter":
			raw := strings.TrimSpace(m.reviewInputs[0].Value())
			rating, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				m.err = fmt.Sprintf("rating must be a number, got %q", raw)
				return m, nil
			}
			comment := strings.TrimSpace(m.reviewInputs[1].Value())
			m.screen = m.previous
			movieID := m.selectedMovieID
			return m, m.addReviewCmd(movieID, rating, comment)
		}
	}

	var cmd tea.Cmd
	m.reviewInputs[m.focusedInput], cmd = m.reviewInputs[m.focusedInput].Update(msg)
	return m, cmd
}

func (m *Model) focusInput(inputs []textinput.Model, index int) {
	if index < 0 {
		index = len(inputs) - 1
	}
	if index >= len(inputs) {
		index = 0
	}
	for i := range inputs {
		inputs[i].Blur()
	}
	inputs[index].Focus()
	m.focusedInput = index
}

func (m *Model) openMovieForm() {
	m.previous = m.screen
	m.screen = ScreenMovieForm
	m.err = ""
	for i := range m.movieInputs {
		m.movieInputs[i].SetValue("")
	}
	m.focusInput(m.movieInputs, 0)
}

func (m *Model) openReviewForm(back Screen) {
	m.previous = back
	m.screen = ScreenReviewForm
	m.err = ""
	for i := range m.reviewInputs {
		m.reviewInputs[i].SetValue("")
	}
	m.focusInput(m.reviewInputs, 0)
}

func (m *Model) askDelete(movie Movie, back Screen) {
	m.previous = back
	m.screen = ScreenConfirm
	m.pendingDeleteID = movie.ID
	m.confirmPrompt = fmt.Sprintf("Delete %q and all of its reviews?", movie.Title)
}

func (m Model) selectedMovie() (Movie, bool) {
	item, ok := m.moviesList.SelectedItem().(movieItem)
	if !ok {
		return Movie{}, false
	}
	movie, ok := m.moviesByID[item.id]
	return movie, ok
}

func (m Model) View() string {
	header := titleStyle.Render("Movie Watchlist") + "\n" +
		tabsStyle.Render("[m] Movies  [c] Categories  [a] Add  [w] Watched  [r] Review  [d] Delete  [enter] Open  [q] Quit") + "\n"
	if m.err != "" {
		header += errorStyle.Render("Error: "+m.err) + "\n"
	} else if m.status != "" {
		header += statusStyle.Render(m.status) + "\n"
	}

	switch m.screen {
	case ScreenCategories:
		if len(m.categoriesList.Items()) == 0 {
			return header + "\n" + renderEmptyState("No categories yet.", "Add one with `watchlist category add <name>`.")
		}
		return header + "\n" + m.categoriesList.View()
	case ScreenMovieDetail:
		return header + "\n" + m.renderMovieDetail()
	case ScreenMovieForm:
		return header + "\n" + renderForm("Add movie", m.movieInputs)
	case ScreenReviewForm:
		title := "Review"
		if movie, ok := m.moviesByID[m.selectedMovieID]; ok {
			title = "Review " + movie.Title
		}
		return header + "\n" + renderForm(title, m.reviewInputs)
	case ScreenConfirm:
		return header + "\n" + m.confirmPrompt + "\n\n[y] Confirm  [n]/[esc] Cancel"
	default:
		if len(m.moviesList.Items()) == 0 {
			return header + "\n" + renderEmptyState("No movies yet.", "Press 'a' to add your first movie.")
		}
		return header + "\n" + m.moviesList.View()
	}
}

func renderEmptyState(title, guidance string) string {
	return title + "\n" + guidance
}

func renderForm(title string, inputs []textinput.Model) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n\n")
	for _, input := range inputs {
		b.WriteString(input.View() + "\n")
	}
	b.WriteString("\n[tab] Next field  [enter] Save  [esc] Cancel")
	return b.String()
}

func (m Model) renderMovieDetail() string {
	movie, ok := m.moviesByID[m.selectedMovieID]
	if !ok {
		return "Movie detail unavailable"
	}

	category := movie.Category
	if category == "" {
		category = "-"
	}
	lines := []string{
		labelStyle.Render("Title") + movie.Title,
		labelStyle.Render("Director") + movie.Director,
		labelStyle.Render("Genre") + movie.Genre,
		labelStyle.Render("Category") + category,
		labelStyle.Render("Watched") + watchedBox(movie.Watched),
		labelStyle.Render("Rating") + formatRating(movie.AverageRating, movie.ReviewCount),
	}
	body := panelStyle.Render(strings.Join(lines, "\n"))

	reviews := "\nNo reviews yet."
	if len(m.selectedReviews) > 0 {
		var b strings.Builder
		b.WriteString("\nReviews\n")
		for _, review := range m.selectedReviews {
			fmt.Fprintf(&b, "  %.1f  %s\n", review.Rating, review.Comment)
		}
		reviews = b.String()
	}
	return body + "\n" + reviews + "\n\nPress ESC to go back."
}

func formatRating(avg float64, count int) string {
	if count == 0 {
		return "unrated"
	}
	return fmt.Sprintf("%.1f/5 (%d reviews)", avg, count)
}

func (m Model) loadDataCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return loadData(client)
	}
}

func loadData(client Client) tea.Msg {
	movies, err := client.ListMovies(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	categories, err := client.ListCategories(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{movies: movies, categories: categories}
}

func (m Model) loadReviewsCmd(movieID int64) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		reviews, err := client.ListReviews(context.Background(), movieID)
		return reviewsMsg{movieID: movieID, reviews: reviews, err: err}
	}
}

func (m Model) setWatchedCmd(movie Movie) tea.Cmd {
	client := m.client
	next := !movie.Watched
	return func() tea.Msg {
		if err := client.SetWatched(context.Background(), movie.ID, next); err != nil {
			return actionMsg{err: err}
		}
		if next {
			return actionMsg{status: fmt.Sprintf("Marked %q watched", movie.Title)}
		}
		return actionMsg{status: fmt.Sprintf("Marked %q unwatched", movie.Title)}
	}
}

func (m Model) deleteMovieCmd(id int64) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if err := client.DeleteMovie(context.Background(), id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("Deleted movie %d", id)}
	}
}

func (m Model) addMovieCmd(input MovieInput) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		movie, err := client.AddMovie(context.Background(), input)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("Added %q", movie.Title)}
	}
}

func (m Model) addReviewCmd(movieID int64, rating float64, comment string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if err := client.AddReview(context.Background(), movieID, rating, comment); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "Review saved"}
	}
}

func (m *Model) populateLists(movies []Movie, categories []Category) {
	m.categoriesByID = make(map[int64]Category, len(categories))
	categoryItems := make([]list.Item, 0, len(categories))
	for _, category := range categories {
		m.categoriesByID[category.ID] = category
		categoryItems = append(categoryItems, categoryItem{id: category.ID, name: category.Name})
	}
	m.categoriesList.SetItems(categoryItems)

	m.allMovies = movies
	m.moviesByID = make(map[int64]Movie, len(movies))
	for _, movie := range movies {
		m.moviesByID[movie.ID] = movie
	}
	if m.categoryFilter != nil {
		if _, ok := m.categoriesByID[*m.categoryFilter]; !ok {
			m.categoryFilter = nil
		}
	}
	m.refreshMovieItems()
}

func (m *Model) refreshMovieItems() {
	items := make([]list.Item, 0, len(m.allMovies))
	for _, movie := range m.allMovies {
		if m.categoryFilter != nil && (movie.CategoryID == nil || *movie.CategoryID != *m.categoryFilter) {
			continue
		}
		description := fmt.Sprintf("%s  %s · %s", watchedBox(movie.Watched), movie.Director, movie.Genre)
		if movie.Category != "" {
			description += " · " + movie.Category
		}
		items = append(items, movieItem{id: movie.ID, title: movie.Title, description: description})
	}
	m.moviesList.SetItems(items)

	m.moviesList.Title = "Movies"
	if m.categoryFilter != nil {
		m.moviesList.Title = "Movies in " + m.categoriesByID[*m.categoryFilter].Name
	}
}

type movieItem struct {
	id          int64
	title       string
	description string
}

func (i movieItem) Title() string       { return i.title }
func (i movieItem) Description() string { return i.description }
func (i movieItem) FilterValue() string { return i.title + " " + i.description }

type categoryItem struct {
	id   int64
	name string
}

func (i categoryItem) Title() string       { return i.name }
func (i categoryItem) Description() string { return fmt.Sprintf("id %d", i.id) }
func (i categoryItem) FilterValue() string { return i.name }
