package tools

import (
	"github.com/go-git/go-git/v5"
)

// CommitSHA returns the HEAD commit SHA of the git repository rooted at
// path, using an embedded git implementation rather than shelling out to
// the git binary (see SPEC_FULL.md §B.3 for why this deviates from how the
// behaviour was originally implemented).
func CommitSHA(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", err
	}

	return head.Hash().String(), nil
}

// BlobSHA returns the git blob SHA of relPath (relative to the repository
// root at path) as recorded in the HEAD commit's tree.
func BlobSHA(path, relPath string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", err
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", err
	}

	tree, err := commit.Tree()
	if err != nil {
		return "", err
	}

	entry, err := tree.FindEntry(relPath)
	if err != nil {
		return "", err
	}

	return entry.Hash.String(), nil
}
