package hierarchy

import (
	"testing"

	"github.com/pkarlsen/vaultview/pkg/model"
)

func TestCacheChildrenRoundTrip(t *testing.T) {
	c := NewCache()

	if _, ok := c.Children("f1"); ok {
		t.Fatal("empty cache should report absent children")
	}
	if c.IsLoaded("f1", ChildFolders) {
		t.Fatal("empty cache should report not loaded")
	}

	nodes := []model.TreeNode{{Key: "f2", Kind: model.KindFolder, Title: "sub"}}
	c.SetChildren("f1", nodes)

	got, ok := c.Children("f1")
	if !ok || len(got) != 1 || got[0].Key != "f2" {
		t.Fatalf("Children(f1) = %v, %v", got, ok)
	}
	if !c.IsLoaded("f1", ChildFolders) {
		t.Error("SetChildren should mark loaded")
	}
	if c.IsLoaded("f1", ChildAssets) {
		t.Error("SetChildren must not mark assets loaded")
	}
}

func TestCacheAssetsIndependentOfChildren(t *testing.T) {
	c := NewCache()
	c.SetAssets("f1", []model.TreeNode{{Key: "a-1", Kind: model.KindAsset}})

	if !c.IsLoaded("f1", ChildAssets) {
		t.Error("SetAssets should mark assets loaded")
	}
	if c.IsLoaded("f1", ChildFolders) {
		t.Error("assets load must not mark folders loaded")
	}
	if _, ok := c.Children("f1"); ok {
		t.Error("children should still be absent")
	}
}

func TestCacheEmptyListIsLoaded(t *testing.T) {
	// A folder with zero children is still "loaded": the fetch happened.
	c := NewCache()
	c.SetChildren("leaf", nil)
	if !c.IsLoaded("leaf", ChildFolders) {
		t.Error("empty child list should still count as loaded")
	}
	got, ok := c.Children("leaf")
	if !ok || len(got) != 0 {
		t.Errorf("Children(leaf) = %v, %v, want empty present", got, ok)
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.SetChildren("f1", []model.TreeNode{{Key: "f2", Kind: model.KindFolder}})
	c.SetAssets("f1", []model.TreeNode{{Key: "a-1", Kind: model.KindAsset}})

	c.Clear()

	if c.IsLoaded("f1", ChildFolders) || c.IsLoaded("f1", ChildAssets) {
		t.Error("Clear should reset loaded-sets")
	}
	if _, ok := c.Children("f1"); ok {
		t.Error("Clear should drop cached children")
	}
	if _, ok := c.Assets("f1"); ok {
		t.Error("Clear should drop cached assets")
	}
}

func TestCacheReturnsCopies(t *testing.T) {
	c := NewCache()
	c.SetChildren("f1", []model.TreeNode{{Key: "f2", Kind: model.KindFolder, Title: "orig"}})

	got, _ := c.Children("f1")
	got[0].Title = "mutated"

	again, _ := c.Children("f1")
	if again[0].Title != "orig" {
		t.Error("cache handed out its internal slice")
	}
}

func TestCacheMarkLoaded(t *testing.T) {
	c := NewCache()
	c.MarkLoaded("f1", ChildAssets)
	if !c.IsLoaded("f1", ChildAssets) {
		t.Error("MarkLoaded(assets) not reflected")
	}
	if c.IsLoaded("f1", ChildFolders) {
		t.Error("MarkLoaded(assets) leaked into folders")
	}
}
