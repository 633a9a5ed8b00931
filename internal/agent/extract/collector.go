package extract

// collectorJS is installed once per page. It observes structural mutations,
// assigns stable ids to elements it has seen, and snapshots candidate images
// and popups on demand. It does no filtering beyond cheap DOM checks; phrase
// matching and eligibility rules run in the agent process.
const collectorJS = `window.__pgCollector = window.__pgCollector || (() => {
	let dirty = true;
	let nextId = 1;
	const ids = new WeakMap();
	const byId = new Map();

	const observer = new MutationObserver(() => { dirty = true; });
	observer.observe(document.documentElement, {
		childList: true,
		subtree: true,
		attributes: true,
	});

	function idFor(el) {
		if (!ids.has(el)) {
			ids.set(el, nextId);
			byId.set(nextId, el);
			nextId++;
		}
		return ids.get(el);
	}

	function thumbnail(img) {
		try {
			const longest = Math.max(img.naturalWidth, img.naturalHeight);
			const scale = Math.min(1, 400 / longest);
			const canvas = document.createElement('canvas');
			canvas.width = Math.max(1, Math.round(img.naturalWidth * scale));
			canvas.height = Math.max(1, Math.round(img.naturalHeight * scale));
			canvas.getContext('2d').drawImage(img, 0, 0, canvas.width, canvas.height);
			return canvas.toDataURL('image/jpeg', 0.8);
		} catch (e) {
			return '';
		}
	}

	function images() {
		return Array.from(document.images)
			.filter(img => img.complete && img.naturalWidth >= 50 && img.naturalHeight >= 50)
			.map(img => ({
				node_id: idFor(img),
				src_url: img.currentSrc || img.src,
				thumbnail: thumbnail(img),
				width: img.naturalWidth,
				height: img.naturalHeight,
			}))
			.filter(c => c.thumbnail);
	}

	function isVisible(el) {
		const cs = getComputedStyle(el);
		return cs.display !== 'none' && cs.visibility !== 'hidden' && cs.opacity !== '0';
	}

	function fieldLabel(input) {
		if (input.labels && input.labels.length > 0) return input.labels[0].innerText.trim();
		return input.placeholder || input.name || input.type || '';
	}

	function popups() {
		const selector = '[class*="modal"],[class*="popup"],[class*="overlay"],[class*="dialog"]';
		return Array.from(document.querySelectorAll(selector))
			.filter(isVisible)
			.map(el => {
				const inputs = Array.from(el.querySelectorAll('input,select,textarea'));
				return {
					node_id: idFor(el),
					text: (el.innerText || '').slice(0, 500),
					field_labels: inputs.map(fieldLabel).filter(Boolean),
					has_inputs: inputs.length > 0,
				};
			});
	}

	return {
		consumeDirty() { const d = dirty; dirty = false; return d; },
		elementFor(id) { return byId.get(id) || null; },
		collect() {
			return JSON.stringify({
				page_url: location.href,
				images: images(),
				popups: popups(),
			});
		},
	};
})(); true;`

// Image is one image candidate as reported by the collector.
type Image struct {
	NodeID    int    `json:"node_id"`
	SrcURL    string `json:"src_url"`
	Thumbnail string `json:"thumbnail"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Popup is one visible modal-like element as reported by the collector.
type Popup struct {
	NodeID      int      `json:"node_id"`
	Text        string   `json:"text"`
	FieldLabels []string `json:"field_labels"`
	HasInputs   bool     `json:"has_inputs"`
}

// Snapshot is one collection pass over the page.
type Snapshot struct {
	PageURL string  `json:"page_url"`
	Images  []Image `json:"images"`
	Popups  []Popup `json:"popups"`
}
